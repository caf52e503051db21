package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	max := int64(25 << 20)

	assert.NoError(t, ValidateUpload("policy.pdf", 1024, max))
	assert.NoError(t, ValidateUpload("REPORT.XLSX", 1024, max))
	assert.NoError(t, ValidateUpload("notes.md", 1, max))

	assert.Error(t, ValidateUpload("", 1024, max), "missing filename")
	assert.Error(t, ValidateUpload("script.sh", 1024, max), "disallowed extension")
	assert.Error(t, ValidateUpload("binary.exe", 1024, max), "disallowed extension")
	assert.Error(t, ValidateUpload("noextension", 1024, max), "no extension")
	assert.Error(t, ValidateUpload("empty.pdf", 0, max), "empty file")
	assert.Error(t, ValidateUpload("big.pdf", max+1, max), "oversized file")
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme-uni"))
	assert.NoError(t, ValidateTenantID("Tenant_01"))

	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("-leading-dash"))
	assert.Error(t, ValidateTenantID("has space"))
	assert.Error(t, ValidateTenantID("semi;colon"))
	assert.Error(t, ValidateTenantID("a/..%2f"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
	assert.Equal(t, "report.pdf", SanitizeFilename("../../etc/report.pdf"))
	assert.Equal(t, "my file.docx", SanitizeFilename("my file.docx"))
	assert.Equal(t, "evilsh.pdf", SanitizeFilename("evil;sh&.pdf"))
	assert.Equal(t, "upload", SanitizeFilename("###"))
	assert.Equal(t, "upload", SanitizeFilename(""))
}
