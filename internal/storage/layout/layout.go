// Package layout defines the object key convention shared by every storage
// backend: {tenant}/{id}/content.bin for live content and
// {tenant}/deleted/{id}/content.bin for soft-deleted content.
package layout

import (
	"fmt"
	"path"
	"strings"

	"github.com/fruitsalade/attachments/internal/attachment"
	"github.com/fruitsalade/attachments/internal/tenant"
)

const (
	// ContentFile is the object name holding an attachment's bytes.
	ContentFile = "content.bin"
	// DeletedDir holds soft-deleted content within a tenant.
	DeletedDir = "deleted"
)

// ValidateID rejects ids that would escape or collide with the key layout.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty document id", attachment.ErrNotFound)
	case id == DeletedDir, id == ".", id == "..":
		return fmt.Errorf("%w: reserved document id %q", attachment.ErrNotFound, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: document id %q contains a path separator", attachment.ErrNotFound, id)
	}
	return nil
}

// ValidateTenant rejects tenant names that would leave the tenant's own
// directory or land in another tenant's deleted area.
func ValidateTenant(tenantID string) error {
	switch name := tenant.Or(tenantID); {
	case name == DeletedDir, name == ".", name == "..":
		return fmt.Errorf("%w: reserved tenant %q", attachment.ErrStorageIO, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: tenant %q contains a path separator", attachment.ErrStorageIO, name)
	}
	return nil
}

// Validate checks the tenant and document id of a key.
func Validate(tenantID, id string) error {
	if err := ValidateTenant(tenantID); err != nil {
		return err
	}
	return ValidateID(id)
}

// Key returns the object key of live content.
func Key(tenantID, id string) string {
	return path.Join(tenant.Or(tenantID), id, ContentFile)
}

// DeletedKey returns the object key of soft-deleted content.
func DeletedKey(tenantID, id string) string {
	return path.Join(tenant.Or(tenantID), DeletedDir, id, ContentFile)
}
