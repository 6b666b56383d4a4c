package repetier

import (
	"fmt"
	"net/http"
)

// Pause asks the firmware to pause the running job.
func (c *Connection) Pause() error {
	return c.command(c.endpoint.SendCommandURL("@pause"))
}

// Resume continues a paused job.
func (c *Connection) Resume() error {
	return c.command(c.endpoint.ContinueJobURL())
}

// Cancel stops the running job.
func (c *Connection) Cancel() error {
	return c.command(c.endpoint.StopJobURL())
}

// SetBedTarget sets the heated-bed target temperature in °C.
func (c *Connection) SetBedTarget(temp float64) error {
	return c.SendGCode(fmt.Sprintf("M140 S%g", temp))
}

// SetHotendTarget sets a hotend target temperature in °C. Only a single
// hotend (index 0) is supported.
func (c *Connection) SetHotendTarget(index int, temp float64) error {
	if index != 0 {
		return fmt.Errorf("hotend %d: only a single hotend is supported", index)
	}
	return c.SendGCode(fmt.Sprintf("M104 T%d S%g", index, temp))
}

// Home homes all axes.
func (c *Connection) Home() error {
	return c.SendGCode("G28")
}

// MoveHead jogs the print head by the given relative offsets at the given
// feed rate, restoring absolute positioning afterwards.
func (c *Connection) MoveHead(dx, dy, dz, speed float64) error {
	if err := c.SendGCode("G91"); err != nil {
		return err
	}
	if err := c.SendGCode(fmt.Sprintf("G0 X%g Y%g Z%g F%g", dx, dy, dz, speed)); err != nil {
		return err
	}
	return c.SendGCode("G90")
}

// SendGCode queues one raw G-code command on the server.
func (c *Connection) SendGCode(cmd string) error {
	return c.command(c.endpoint.SendCommandURL(cmd))
}

func (c *Connection) command(url string) error {
	return c.call(func() error {
		if !c.acceptsCommands {
			return ErrNotAcceptingCommands
		}
		c.issue(Request{Kind: KindCommand, Method: http.MethodGet, URL: url, APIKey: c.endpoint.APIKey})
		return nil
	})
}
