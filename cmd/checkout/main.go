// checkout walks through the storefront checkout form in a terminal,
// verifying the email address and phone number against the API before
// placing the order.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mridang-api/internal/application/checkout"
	"github.com/mridang-api/internal/client"
	"github.com/mridang-api/internal/domain"
)

var addressFields = []struct{ name, label string }{
	{"firstName", "First name"},
	{"lastName", "Last name"},
	{"address", "Address"},
	{"city", "City"},
	{"state", "State"},
	{"pincode", "Pincode"},
	{"country", "Country [India]"},
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func main() {
	_ = godotenv.Load()
	defaultURL := os.Getenv("API_BASE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3000"
	}
	baseURL := flag.String("api", defaultURL, "base URL of the verification API")
	timeout := flag.Duration("timeout", 20*time.Second, "per-request timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := &prompter{in: bufio.NewScanner(os.Stdin), out: os.Stdout}
	ctrl := checkout.NewController(client.New(*baseURL, *timeout))

	if err := run(ctx, p, ctrl); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("checkout aborted", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p *prompter, ctrl *checkout.Controller) error {
	for _, f := range addressFields {
		v, err := p.ask(f.label)
		if err != nil {
			return err
		}
		if err := ctrl.Set(f.name, v); err != nil {
			return err
		}
	}
	if err := verifyField(ctx, p, ctrl, domain.ChannelEmail, "Email"); err != nil {
		return err
	}
	if err := verifyField(ctx, p, ctrl, domain.ChannelSMS, "Phone number"); err != nil {
		return err
	}

	for {
		order, err := ctrl.PlaceOrder(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "Proceeding to payment. Order reference: %s\n", order.Ref)
			return nil
		}
		fields := fieldErrors(err)
		if fields == nil {
			return err
		}
		if err := fix(ctx, p, ctrl, fields); err != nil {
			return err
		}
	}
}

// verifyField loops until the field reaches Verified. At the code prompt an
// empty line resends and "e" edits the value.
func verifyField(ctx context.Context, p *prompter, ctrl *checkout.Controller, ch domain.Channel, label string) error {
	f := ctrl.Email
	if ch == domain.ChannelSMS {
		f = ctrl.Phone
	}
	for f.Snapshot().State != checkout.Verified {
		snap := f.Snapshot()
		switch snap.State {
		case checkout.Unverified:
			if snap.Value == "" || snap.Error != "" {
				if snap.Error != "" {
					fmt.Fprintf(p.out, "  %s\n", snap.Error)
				}
				v, err := p.ask(label)
				if err != nil {
					return err
				}
				f.Edit(v)
			}
			if err := ctrl.SendCode(ctx, ch); err != nil {
				continue
			}
			snap = f.Snapshot()
			fmt.Fprintf(p.out, "  %s\n", snap.Notice)
			if snap.MockCode != "" {
				fmt.Fprintf(p.out, "  (mock mode) code: %s\n", snap.MockCode)
			}
		case checkout.AwaitingCode:
			if snap.Error != "" {
				fmt.Fprintf(p.out, "  %s\n", snap.Error)
			}
			code, err := p.ask("Code (enter to resend, e to edit)")
			if err != nil {
				return err
			}
			switch code {
			case "":
				_ = ctrl.SendCode(ctx, ch)
			case "e":
				f.Edit("")
			default:
				_ = ctrl.VerifyCode(ctx, ch, code)
			}
		default:
			return fmt.Errorf("%s stuck in state %s", label, snap.State)
		}
	}
	fmt.Fprintf(p.out, "  %s verified\n", label)
	return nil
}

func fix(ctx context.Context, p *prompter, ctrl *checkout.Controller, fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(p.out, "  %s\n", fields[name])
		switch name {
		case "email":
			ctrl.Email.Edit("")
			if err := verifyField(ctx, p, ctrl, domain.ChannelEmail, "Email"); err != nil {
				return err
			}
		case "phone":
			ctrl.Phone.Edit("")
			if err := verifyField(ctx, p, ctrl, domain.ChannelSMS, "Phone number"); err != nil {
				return err
			}
		default:
			v, err := p.ask(name)
			if err != nil {
				return err
			}
			if err := ctrl.Set(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldErrors(err error) map[string]string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return apiErr.Fields
	}
	return nil
}
