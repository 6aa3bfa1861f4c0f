package catalog

import (
	"encoding/json"
	"os/exec"
)

// runHook invokes the configured post-write command once, synchronously,
// with the created track serialized as a single JSON argument. The catalog
// write is already committed when the hook runs; a failing hook is logged
// and never rolls it back.
func (c *Client) runHook(track *Track) {
	if c.hookCommand == "" {
		return
	}

	payload, err := json.Marshal(track)
	if err != nil {
		c.log.Error("failed to serialize track for hook", "error", err)
		return
	}

	cmd := exec.Command(c.hookCommand, string(payload))
	if err := cmd.Run(); err != nil {
		c.log.Error("track hook failed", "command", c.hookCommand, "error", err)
		return
	}
	c.log.Debug("track hook completed", "command", c.hookCommand)
}
