package envelope

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"
)

// Decode classifies a raw HTTP response into a Result.
//
// Priority: a body request_id that disagrees with the header is always a
// contract violation. Then a boolean success field decides the variant.
// Without one, strict callers get a contract violation and everyone else
// falls back to the HTTP status. Unparseable bodies are treated as
// {"error": <text>}.
func Decode(status int, headerRequestID string, body []byte, strict bool) Result[json.RawMessage] {
	statusOK := status >= 200 && status < 300
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = "Request failed"
	}

	raw := bytes.TrimSpace(body)
	if len(raw) > 0 && !gjson.ValidBytes(raw) {
		wrapped, err := json.Marshal(map[string]string{"error": string(body)})
		if err == nil {
			raw = wrapped
		}
	}

	parsed := gjson.ParseBytes(raw)
	if len(raw) == 0 || !parsed.IsObject() {
		if strict {
			return Failure[json.RawMessage](status, msgMissingSuccess, CodeContractViolation, "", headerRequestID)
		}
		if statusOK {
			return Success(status, headerRequestID, rawMessage(raw))
		}
		msg := statusText
		if parsed.Type == gjson.String && parsed.Str != "" {
			msg = parsed.Str
		}
		return Failure[json.RawMessage](status, msg, "", "", headerRequestID)
	}

	requestID := headerRequestID
	if bodyID := parsed.Get("request_id"); bodyID.Type == gjson.String && bodyID.Str != "" {
		if bodyID.Str != headerRequestID {
			return Failure[json.RawMessage](status, msgContractViolation, CodeContractViolation, "", headerRequestID)
		}
		requestID = bodyID.Str
	}

	success := parsed.Get("success")
	switch success.Type {
	case gjson.True:
		data := parsed.Get("data")
		if data.Exists() {
			return Success(status, requestID, json.RawMessage(data.Raw))
		}
		return Success(status, requestID, rawMessage(raw))
	case gjson.False:
		return Failure[json.RawMessage](status,
			errorMessage(parsed, statusText),
			stringField(parsed, "code"),
			stringField(parsed, "hint"),
			requestID,
		)
	}

	if strict {
		return Failure[json.RawMessage](status, msgMissingSuccess, CodeContractViolation, "", requestID)
	}
	if statusOK {
		return Success(status, requestID, rawMessage(raw))
	}
	return Failure[json.RawMessage](status,
		errorMessage(parsed, statusText),
		stringField(parsed, "code"),
		stringField(parsed, "hint"),
		requestID,
	)
}

func rawMessage(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// errorMessage reads "error" as a string or as {"message": ...}.
func errorMessage(obj gjson.Result, fallback string) string {
	e := obj.Get("error")
	switch {
	case e.Type == gjson.String && e.Str != "":
		return e.Str
	case e.IsObject():
		if m := e.Get("message"); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	return fallback
}
