// SPDX-License-Identifier: MIT

package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureIsIdempotent(t *testing.T) {
	Configure(Config{Level: "debug"})
	first := Base()

	// A second Configure call must not replace the configured logger.
	Configure(Config{Level: "error", Service: "other"})
	second := Base()

	if first.GetLevel() != second.GetLevel() {
		t.Errorf("Configure reconfigured the global logger: %v != %v", first.GetLevel(), second.GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	l := WithComponent("moi")
	if l.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid component logger")
	}
}
