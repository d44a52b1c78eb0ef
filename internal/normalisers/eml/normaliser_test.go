package eml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "message/rfc822")
	assert.Len(t, mimeTypes, 1)
}

func TestPriority(t *testing.T) {
	normaliser := New()
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_NilUpload(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	extracted, err := normaliser.Normalise(ctx, nil)
	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, extracted)
}

func TestNormalise_SimpleEmail(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	emlContent := `From: sender@example.com
To: recipient@example.com
Subject: Test Email Subject
Date: Mon, 01 Jan 2024 10:00:00 +0000
Content-Type: text/plain

This is the body of the email.
It has multiple lines.
`

	upload := &domain.Upload{
		Filename:     "email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte(emlContent),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	assert.Contains(t, extracted.Text, "This is the body of the email")
	assert.Contains(t, extracted.Text, "From: sender@example.com")
	assert.Contains(t, extracted.Text, "To: recipient@example.com")
	assert.Contains(t, extracted.Text, "Subject: Test Email Subject")
	assert.Empty(t, extracted.PageStarts)
}

func TestNormalise_NoSubject(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	emlContent := `From: sender@example.com
To: recipient@example.com
Content-Type: text/plain

Email without subject.
`

	upload := &domain.Upload{
		Filename:     "my_email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte(emlContent),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	assert.Contains(t, extracted.Text, "Email without subject.")
	assert.NotContains(t, extracted.Text, "Subject:")
}

func TestNormalise_HTMLBody(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	emlContent := `From: sender@example.com
To: recipient@example.com
Subject: HTML Email
Content-Type: text/html

<html>
<body>
<h1>Hello</h1>
<p>This is <b>HTML</b> content.</p>
</body>
</html>
`

	upload := &domain.Upload{
		Filename:     "email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte(emlContent),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	// HTML tags should be stripped
	assert.Contains(t, extracted.Text, "Hello")
	assert.Contains(t, extracted.Text, "HTML content")
	assert.NotContains(t, extracted.Text, "<h1>")
	assert.NotContains(t, extracted.Text, "<p>")
}

func TestNormalise_MultipartAlternative(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	emlContent := `From: sender@example.com
To: recipient@example.com
Subject: Multipart Email
Content-Type: multipart/alternative; boundary="boundary123"

--boundary123
Content-Type: text/plain

Plain text version of the email.
--boundary123
Content-Type: text/html

<html><body><p>HTML version</p></body></html>
--boundary123--
`

	upload := &domain.Upload{
		Filename:     "email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte(emlContent),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	// Should prefer plain text over HTML
	assert.Contains(t, extracted.Text, "Plain text version")
}

func TestNormalise_EncodedSubject(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	// RFC 2047 encoded subject (UTF-8 base64)
	emlContent := `From: sender@example.com
To: recipient@example.com
Subject: =?UTF-8?B?VGVzdCBFbWFpbCDwn5iA?=
Content-Type: text/plain

Body content.
`

	upload := &domain.Upload{
		Filename:     "email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte(emlContent),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	// Should decode the subject
	assert.Contains(t, extracted.Text, "Subject: Test Email")
	assert.NotContains(t, extracted.Text, "=?UTF-8?B?")
}

func TestNormalise_InvalidEmail(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	upload := &domain.Upload{
		Filename:     "email.eml",
		DeclaredMIME: "message/rfc822",
		Content:      []byte("not a valid email"),
	}

	extracted, err := normaliser.Normalise(ctx, upload)
	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, extracted)
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "Simple Subject",
			expected: "Simple Subject",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "utf8 base64 encoded",
			input:    "=?UTF-8?B?SGVsbG8gV29ybGQ=?=",
			expected: "Hello World",
		},
		{
			name:     "utf8 quoted printable",
			input:    "=?UTF-8?Q?Hello_World?=",
			expected: "Hello World",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := decodeHeader(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple html",
			input:    "<p>Hello</p>",
			expected: "Hello",
		},
		{
			name:     "nested tags",
			input:    "<div><p>Hello <b>World</b></p></div>",
			expected: "Hello World",
		},
		{
			name:     "with whitespace",
			input:    "<p>Line 1</p>\n\n<p>Line 2</p>",
			expected: "Line 1\nLine 2",
		},
		{
			name:     "no tags",
			input:    "Plain text",
			expected: "Plain text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := stripHTMLTags(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
