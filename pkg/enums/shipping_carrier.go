package enums

import "fmt"

type ShippingCarrier string

const (
	CarrierAustraliaPost ShippingCarrier = "australia-post"
	CarrierStarTrack     ShippingCarrier = "startrack"
	CarrierDHL           ShippingCarrier = "dhl"
	CarrierFedEx         ShippingCarrier = "fedex"
	CarrierOther         ShippingCarrier = "other"
)

var validShippingCarriers = []ShippingCarrier{
	CarrierAustraliaPost,
	CarrierStarTrack,
	CarrierDHL,
	CarrierFedEx,
	CarrierOther,
}

func (c ShippingCarrier) String() string {
	return string(c)
}

func (c ShippingCarrier) IsValid() bool {
	for _, candidate := range validShippingCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseShippingCarrier(value string) (ShippingCarrier, error) {
	for _, candidate := range validShippingCarriers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping carrier %q", value)
}
