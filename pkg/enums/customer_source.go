package enums

import "fmt"

// CustomerSource records how a customer record was first created.
type CustomerSource string

const (
	CustomerSourceCheckout   CustomerSource = "checkout"
	CustomerSourceNewsletter CustomerSource = "newsletter"
	CustomerSourceContact    CustomerSource = "contact"
	CustomerSourceManual     CustomerSource = "manual"
	CustomerSourceImport     CustomerSource = "import"
)

var validCustomerSources = []CustomerSource{
	CustomerSourceCheckout,
	CustomerSourceNewsletter,
	CustomerSourceContact,
	CustomerSourceManual,
	CustomerSourceImport,
}

func (s CustomerSource) String() string {
	return string(s)
}

func (s CustomerSource) IsValid() bool {
	for _, candidate := range validCustomerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCustomerSource converts raw input into a CustomerSource.
func ParseCustomerSource(value string) (CustomerSource, error) {
	for _, candidate := range validCustomerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer source %q", value)
}
