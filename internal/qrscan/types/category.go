package types

// Category labels what a scanned or entered payload looks like.
type Category string

const (
	CategoryURL   Category = "url"
	CategoryEmail Category = "email"
	CategoryPhone Category = "phone"
	CategoryWiFi  Category = "wifi"
	CategoryVCard Category = "vcard"
	CategoryText  Category = "text"
)

// Categories lists every category in classifier precedence order.
var Categories = []Category{
	CategoryURL,
	CategoryEmail,
	CategoryPhone,
	CategoryWiFi,
	CategoryVCard,
	CategoryText,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryURL, CategoryEmail, CategoryPhone, CategoryWiFi, CategoryVCard, CategoryText:
		return true
	}
	return false
}

// Facing selects which camera a scan session uses.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

func (f Facing) Valid() bool {
	return f == FacingEnvironment || f == FacingUser
}

// Flip returns the other camera.
func (f Facing) Flip() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}
