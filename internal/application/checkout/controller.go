package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mridang-api/internal/domain"
	"github.com/mridang-api/internal/pkg/identifier"
	"github.com/mridang-api/internal/pkg/validate"
)

const (
	MsgEmailRequired = "Email is required"
	MsgPhoneRequired = "Phone number is required"
	MsgEnterCode     = "Please enter a valid 4-digit OTP"
)

var codeRe = regexp.MustCompile(`^\d{4}$`)

// SendReceipt is what the server says after sending a code.
type SendReceipt struct {
	Message   string
	ExpiresIn string
	// MockCode is only set when the server runs in mock mode.
	MockCode string
}

// Gateway is the client's view of the verification API.
type Gateway interface {
	SendCode(ctx context.Context, ch domain.Channel, identifier string) (*SendReceipt, error)
	// VerifyCode returns the verification token, which may be empty when the server issues none.
	VerifyCode(ctx context.Context, ch domain.Channel, identifier, code string) (string, error)
	Checkout(ctx context.Context, form domain.CheckoutForm) (*domain.Order, error)
}

// Controller drives the checkout form: the two verifiable fields and the
// plain address fields.
type Controller struct {
	gw    Gateway
	Email *Field
	Phone *Field

	mu   sync.Mutex
	form domain.CheckoutForm
}

func NewController(gw Gateway) *Controller {
	return &Controller{
		gw:    gw,
		Email: NewField(domain.ChannelEmail),
		Phone: NewField(domain.ChannelSMS),
		form:  domain.CheckoutForm{Country: domain.DefaultCountry},
	}
}

// Set updates a form field by its json name. Editing email or phone resets its verification.
func (c *Controller) Set(name, value string) error {
	switch name {
	case "email":
		c.Email.Edit(value)
		return nil
	case "phone":
		c.Phone.Edit(value)
		return nil
	}

	value = strings.TrimSpace(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "firstName":
		c.form.FirstName = value
	case "lastName":
		c.form.LastName = value
	case "address":
		c.form.Address = value
	case "city":
		c.form.City = value
	case "state":
		c.form.State = value
	case "pincode":
		c.form.Pincode = value
	case "country":
		c.form.Country = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

func (c *Controller) field(ch domain.Channel) *Field {
	if ch == domain.ChannelSMS {
		return c.Phone
	}
	return c.Email
}

// SendCode requests a code for the field's current value. Invalid values are
// rejected locally and never reach the gateway.
func (c *Controller) SendCode(ctx context.Context, ch domain.Channel) error {
	f := c.field(ch)
	if msg := precheck(ch, f.Snapshot().Value); msg != "" {
		f.Fail(msg)
		return errors.New(msg)
	}

	gen, value, err := f.beginSend()
	if err != nil {
		return err
	}
	receipt, err := c.gw.SendCode(ctx, ch, value)
	f.finishSend(gen, receipt, err)
	return err
}

// VerifyCode submits code for the field. A code that is not four digits is
// rejected locally.
func (c *Controller) VerifyCode(ctx context.Context, ch domain.Channel, code string) error {
	f := c.field(ch)
	code = strings.TrimSpace(code)
	if !codeRe.MatchString(code) {
		f.Fail(MsgEnterCode)
		return errors.New(MsgEnterCode)
	}

	gen, value, err := f.beginVerify()
	if err != nil {
		return err
	}
	token, err := c.gw.VerifyCode(ctx, ch, value, code)
	f.finishVerify(gen, token, err)
	return err
}

// Submit validates the whole form. It returns the request to send to the
// checkout endpoint, or a *domain.ValidationError keyed by field.
func (c *Controller) Submit() (*domain.CheckoutForm, error) {
	c.mu.Lock()
	form := c.form
	c.mu.Unlock()

	email, phone := c.Email.Snapshot(), c.Phone.Snapshot()
	form.Email, form.EmailToken = email.Value, email.Token
	form.Phone, form.PhoneToken = phone.Value, phone.Token

	fields := map[string]string{}
	if err := validate.Struct(&form); err != nil {
		var fe validate.FieldErrors
		if !errors.As(err, &fe) {
			return nil, err
		}
		for k, v := range fe {
			fields[k] = v
		}
	}
	if strings.TrimSpace(form.Email) == "" {
		fields["email"] = MsgEmailRequired
	}
	if email.State != Verified {
		fields["email"] = MsgVerifyEmail
	}
	if strings.TrimSpace(form.Phone) == "" {
		fields["phone"] = MsgPhoneRequired
	}
	if phone.State != Verified {
		fields["phone"] = MsgVerifyPhone
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Message: MsgFixFields, Fields: fields}
	}
	return &form, nil
}

// PlaceOrder submits the form and, if it is complete, hands it to the gateway.
func (c *Controller) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	form, err := c.Submit()
	if err != nil {
		return nil, err
	}
	return c.gw.Checkout(ctx, *form)
}

func precheck(ch domain.Channel, value string) string {
	if strings.TrimSpace(value) == "" {
		if ch == domain.ChannelSMS {
			return MsgPhoneRequired
		}
		return MsgEmailRequired
	}
	if ch == domain.ChannelSMS {
		if _, err := identifier.NormalizePhone(value); err != nil {
			return MsgInvalidPhone
		}
		return ""
	}
	if _, err := identifier.NormalizeEmail(value); err != nil {
		return MsgInvalidEmail
	}
	return ""
}
