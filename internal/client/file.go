package client

import "github.com/pfagner/rxs/internal/protocol"

// File is a server-side file handle opened over the control channel.
// Its id doubles as the stream id used to set up and drive the data
// channel for Fread/Fwrite, mirroring the server's OpenFile/session
// bookkeeping where fopen's returned handle is reused as fread/fwrite's
// stream id.
type File struct {
	c    *Client
	id   uint32
	path string
}

// Fopen opens path on the server in the given C fopen(3)-style mode
// ("r", "w", "a", "r+", "w+", "a+", each optionally suffixed "b").
func (c *Client) Fopen(path, mode string) (*File, error) {
	req := protocol.S2{Data1: []byte(path), Data2: []byte(mode)}
	resp, err := c.call(protocol.OpFopen, req.Encode())
	if err != nil {
		return nil, err
	}
	s0, decErr := protocol.DecodeS0(resp)
	if decErr != nil {
		return nil, decErr
	}
	return &File{c: c, id: s0.Val, path: path}, nil
}

// Flush asks the server to fsync the file's current contents.
func (f *File) Flush() error {
	_, err := f.c.call(protocol.OpFflush, protocol.S0{Val: f.id}.Encode())
	return err
}

// Close closes the server-side handle and tears down any data channel
// still associated with its stream id.
func (f *File) Close() error {
	_, err := f.c.call(protocol.OpFclose, protocol.S0{Val: f.id}.Encode())
	f.c.closeDataChannel(f.id)
	return err
}
