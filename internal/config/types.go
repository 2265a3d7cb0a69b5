package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that reads "5s"-like strings from JSON and the environment.
// A bare JSON number is taken as seconds.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)

	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(text))
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or a number of seconds: %w", err)
	}
	*d = Duration(seconds * float64(time.Second))

	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Snowflake is a Discord id. Settings files carry it either as a string or as a bare number.
type Snowflake string

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Snowflake(text)
		return nil
	}

	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	for _, c := range data {
		if c < '0' || c > '9' {
			return fmt.Errorf("invalid snowflake %s", data)
		}
	}
	*s = Snowflake(data)

	return nil
}

func (s Snowflake) String() string {
	return string(s)
}
