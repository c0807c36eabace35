package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mridang-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMSG91(t *testing.T, h http.HandlerFunc) *MSG91 {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewMSG91(&config.Config{
		MSG91AuthKey:    "key-123",
		MSG91SenderID:   "MSGOTP",
		MSG91Route:      "4",
		MSG91TemplateID: "tmpl-9",
		MSG91BaseURL:    srv.URL,
		SMSTimeout:      2 * time.Second,
	})
	require.NotNil(t, c)
	return c
}

func TestNewMSG91_NilWithoutAuthKey(t *testing.T) {
	assert.Nil(t, NewMSG91(&config.Config{}))
}

func TestMSG91_SendSMS_PostsFormAndReturnsRequestID(t *testing.T) {
	var got http.Request
	c := newTestMSG91(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = *r
		_, _ = w.Write([]byte("3763646c3058373530393138\n"))
	})

	id, err := c.SendSMS(context.Background(), "919876543210", "Your code is 1234")
	require.NoError(t, err)
	assert.Equal(t, "3763646c3058373530393138", id)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "key-123", got.PostForm.Get("authkey"))
	assert.Equal(t, "919876543210", got.PostForm.Get("mobiles"))
	assert.Equal(t, "Your code is 1234", got.PostForm.Get("message"))
	assert.Equal(t, "MSGOTP", got.PostForm.Get("sender"))
	assert.Equal(t, "4", got.PostForm.Get("route"))
	assert.Equal(t, "91", got.PostForm.Get("country"))
	assert.Equal(t, "tmpl-9", got.PostForm.Get("DLT_TE_ID"))
}

func TestMSG91_SendSMS_ErrorBodyIsClassified(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   FailureKind
	}{
		{"auth", http.StatusOK, `{"type":"error","message":"Authentication failure","code":"418"}`, KindConfig},
		{"balance", http.StatusOK, `{"type":"error","message":"Insufficient balance"}`, KindBalance},
		{"sender", http.StatusOK, "error: invalid sender id", KindSender},
		{"unknown", http.StatusBadRequest, "something odd", KindUnknown},
		{"empty", http.StatusOK, "", KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestMSG91(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.SendSMS(context.Background(), "919876543210", "hi")
			require.Error(t, err)
			var ge *GatewayError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tc.want, ge.Kind)
			assert.Equal(t, tc.status, ge.Status)
		})
	}
}

func TestMSG91_SendSMS_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewMSG91(&config.Config{MSG91AuthKey: "k", MSG91BaseURL: url, SMSTimeout: time.Second})
	_, err := c.SendSMS(context.Background(), "919876543210", "hi")
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindBalance, Classify("301", ""))
	assert.Equal(t, KindSender, Classify("103", ""))
	assert.Equal(t, KindConfig, Classify("106", ""))
	assert.Equal(t, KindConfig, Classify("", "IP not whitelisted"))
	assert.Equal(t, KindConfig, Classify("", "DLT template mismatch"))
	assert.Equal(t, KindBalance, Classify("", "No credits left"))
	assert.Equal(t, KindUnknown, Classify("", "mobile number missing"))
}

func TestKindOf_NonGatewayError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindSender, KindOf(&GatewayError{Kind: KindSender}))
}
