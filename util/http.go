package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrSendFailed is returned when the request could not be sent
	ErrSendFailed = errors.New("sending failed")
	// ErrResponseReadFail is returned when the response could not be read
	ErrResponseReadFail = errors.New("failed to read response")
)

// StatusError is returned for responses outside 2xx. Body holds the
// response as received.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad response %d: %s", e.Code, e.Body)
}

// SendJSON sends body encoded as JSON to url and decodes a 2xx response into
// out. out may be nil.
func SendJSON(method, url string, body, out interface{}) error {
	return SendJSONWith(http.DefaultClient, method, url, body, out)
}

// SendJSONWith is SendJSON over the given client
func SendJSONWith(client *http.Client, method, url string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return errors.Wrap(ErrSendFailed, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(ErrSendFailed, err.Error())
	}
	defer resp.Body.Close()
	respB, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrResponseReadFail
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(respB)}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(respB, out), "decoding response")
}
