package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"punctuation stripped", "Go 1.24: What's New?", "go-1-24-what-s-new"},
		{"extra whitespace", "  spaced   out  ", "spaced-out"},
		{"already slug-like", "my-post", "my-post"},
		{"symbols collapse", "C++ & Rust!!", "c-rust"},
		{"empty falls back", "", "post"},
		{"only symbols falls back", "!!!", "post"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_MaxLength(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "verylongword "
	}
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), 80)
	assert.NotEqual(t, "-", slug[len(slug)-1:])
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("reader@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("spaces in@example.com"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ink_writer"))
	assert.NoError(t, ValidateUsername("abc"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("_leading"))
	assert.Error(t, ValidateUsername("trailing-"))
	assert.Error(t, ValidateUsername("has spaces"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret123"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("allletters"))
	assert.Error(t, ValidatePassword("12345678"))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "technology", NormalizeLabel("  Technology "))
	assert.Equal(t, "go", NormalizeLabel("GO"))
	assert.Equal(t, "", NormalizeLabel("   "))
}

func TestValidateLabelName(t *testing.T) {
	assert.NoError(t, ValidateLabelName("tech"))
	assert.Error(t, ValidateLabelName("a"))
}

func TestValidateStruct(t *testing.T) {
	type createPostRequest struct {
		Title   string `validate:"required,max=10"`
		Content string `validate:"required"`
	}

	err := ValidateStruct(&createPostRequest{Title: "Hi", Content: "body"})
	assert.NoError(t, err)

	err = ValidateStruct(&createPostRequest{Content: "body"})
	assert.EqualError(t, err, "title is required")

	err = ValidateStruct(&createPostRequest{Title: "way too long for this", Content: "body"})
	assert.EqualError(t, err, "title must not exceed 10 characters")
}
