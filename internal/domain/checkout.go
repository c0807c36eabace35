package domain

// DefaultCountry is used when the checkout form leaves country blank.
const DefaultCountry = "India"

// CheckoutForm is the order form submitted once both identifiers are verified.
type CheckoutForm struct {
	FirstName  string `json:"firstName" label:"First name" validate:"required"`
	LastName   string `json:"lastName" label:"Last name" validate:"required"`
	Email      string `json:"email" label:"Email" validate:"required"`
	Phone      string `json:"phone" label:"Phone number" validate:"required"`
	Address    string `json:"address" label:"Address" validate:"required"`
	City       string `json:"city" label:"City" validate:"required"`
	State      string `json:"state" label:"State" validate:"required"`
	Pincode    string `json:"pincode" label:"Pincode" validate:"required"`
	Country    string `json:"country"`
	EmailToken string `json:"emailToken"`
	PhoneToken string `json:"phoneToken"`
}

// Order is an accepted checkout ready to be handed to payment.
type Order struct {
	Ref     string `json:"orderRef"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Country string `json:"country"`
}
