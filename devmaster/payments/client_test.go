package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMercadoPagoCreatePreference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.Equal(t, "Energy Pack (+3)", req.Items[0].Title)

		json.NewEncoder(w).Encode(Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"})
	}))
	defer server.Close()

	client := NewMercadoPagoClient(server.URL, "token-abc")
	pref, err := client.CreatePreference(context.Background(), &PreferenceRequest{
		Items: []PreferenceItem{{Title: "Energy Pack (+3)", Quantity: 1, UnitPrice: 4.99, CurrencyID: "BRL"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://pay.example/pref-1", pref.InitPoint)
}

func TestMercadoPagoGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 42,
			"status":             "approved",
			"external_reference": `{"user_id":"x"}`,
		})
	}))
	defer server.Close()

	client := NewMercadoPagoClient(server.URL, "token-abc")
	payment, err := client.GetPayment(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, payment.Status)
	assert.Equal(t, `{"user_id":"x"}`, payment.ExternalReference)
}

func TestMercadoPagoErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewMercadoPagoClient(server.URL, "bad-token")
	_, err := client.GetPayment(context.Background(), "42")
	assert.ErrorIs(t, err, ErrProcessorUnavailable)
}
