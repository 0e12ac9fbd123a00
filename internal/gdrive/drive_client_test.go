package gdrive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQuery(t *testing.T) {
	assert.Equal(t, "quarterly report", sanitizeQuery("quarterly report"))
	assert.Equal(t, "bobs proposal", sanitizeQuery("bob's proposal"))
	assert.Equal(t, "the deck", sanitizeQuery(` "the deck" `))
	assert.Equal(t, "", sanitizeQuery(`'"`))
}

func TestExportFormatsCoverGoogleDocTypes(t *testing.T) {
	doc, ok := exportFormats["application/vnd.google-apps.document"]
	assert.True(t, ok)
	assert.Equal(t, ".docx", doc.extension)

	sheet, ok := exportFormats["application/vnd.google-apps.spreadsheet"]
	assert.True(t, ok)
	assert.Equal(t, ".xlsx", sheet.extension)

	slides, ok := exportFormats["application/vnd.google-apps.presentation"]
	assert.True(t, ok)
	assert.Equal(t, ".pptx", slides.extension)
}
