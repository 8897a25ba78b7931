package client

import "github.com/pfagner/rxs/internal/protocol"

// Authenticate submits credentials and, on success, latches this
// session's encoder-mode flag for every subsequent stream. It must be
// the first call issued on a freshly dialed Client; the server refuses
// every other operation until it succeeds.
func (c *Client) Authenticate(user, password string, encoder bool) error {
	var encoderFlag uint8
	if encoder {
		encoderFlag = 1
	}

	req := protocol.S2{Data1: []byte(user), Data2: []byte(password), Encoder: encoderFlag}
	if _, err := c.call(protocol.OpAuthorization, req.Encode()); err != nil {
		return err
	}
	c.encoder = encoder
	return nil
}
