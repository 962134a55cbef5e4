package form

// Storage is the key-value store field values and list keys persist into.
// Errors are returned to the caller unchanged.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// LicenseStatus is the result of a license check.
type LicenseStatus int

const (
	LicenseValid LicenseStatus = iota
	LicenseOutdated
	LicenseInvalid
)

func (s LicenseStatus) String() string {
	switch s {
	case LicenseValid:
		return "valid"
	case LicenseOutdated:
		return "outdated"
	}
	return "invalid"
}

// LicenseFunc reports the current license status. Persistence only happens
// while it reports LicenseValid.
type LicenseFunc func() LicenseStatus

// StorageKey returns the storage key of an element of a form.
func StorageKey(formID, elementID string) string {
	return "tonic:" + formID + ":" + elementID
}
