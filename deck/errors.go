package deck

import "fmt"

// UnknownVariantError is returned when a tagged union carries a discriminator
// this package does not know.
type UnknownVariantError struct {
	Union   string
	Variant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("Unknown %s variant [%s]", e.Union, e.Variant)
}

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported deck format [%s]", e.Format)
}
