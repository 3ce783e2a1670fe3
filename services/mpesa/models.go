package mpesa

import (
	"fmt"
	"strconv"
	"time"
)

// Wire types for the Safaricom Daraja API. Field names are part of the vendor
// contract and must not be renamed.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest is the body of the STK push (push-payment) call.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's synchronous acknowledgment.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKQueryRequest is the body of the STK push status query call.
type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQueryResponse is the gateway's answer to a status query. ResultCode is a
// string here, unlike the numeric ResultCode in the callback.
type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// CallbackEnvelope is the body the gateway POSTs to the callback URL.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	StkCallback STKCallback `json:"stkCallback"`
}

// STKCallback carries the asynchronous transaction result. ResultCode 0 is
// success; anything else is a failure (1032 is the user rejecting the prompt).
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is a list of name/value pairs. The order of items is not
// guaranteed, so lookups must match on Name, never on position.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// String returns the metadata value with the given name rendered as a string.
// Numeric values (the Amount and TransactionDate items arrive as JSON numbers)
// are formatted without an exponent.
func (m *CallbackMetadata) String(name string) (string, bool) {
	for _, item := range m.Item {
		if item.Name != name || item.Value == nil {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v, true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		default:
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

// Float returns the numeric metadata value with the given name.
func (m *CallbackMetadata) Float(name string) (float64, bool) {
	for _, item := range m.Item {
		if item.Name == name {
			if v, ok := item.Value.(float64); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// Time parses the metadata value with the given name as a Daraja timestamp
// (YYYYMMDDHHmmss, delivered as a JSON number).
func (m *CallbackMetadata) Time(name string) (time.Time, bool) {
	raw, ok := m.String(name)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timestampLayout, raw, nairobiLocation())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
