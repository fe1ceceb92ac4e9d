package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCommand(t *testing.T) {
	prev := rootCmd.Version
	t.Cleanup(func() { rootCmd.Version = prev })
	SetVersion("1.2.3")

	cmd := newVersionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.Run(cmd, nil)

	assert.Equal(t, "canopy version 1.2.3\n", out.String())
}
