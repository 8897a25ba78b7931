package client

import "github.com/pfagner/rxs/internal/protocol"

// Ls runs cmd on the server and returns the server-side path of the
// file its captured output was written to. Download it with Fopen/Fread.
func (c *Client) Ls(cmd string) (string, error) {
	resp, err := c.call(protocol.OpLs, protocol.S1{Data: []byte(cmd)}.Encode())
	if err != nil {
		return "", err
	}
	s1, decErr := protocol.DecodeS1(resp)
	if decErr != nil {
		return "", decErr
	}
	return string(s1.Data), nil
}

// Mkdir creates a single directory component with the given mode.
func (c *Client) Mkdir(path string, mode uint32) error {
	_, err := c.call(protocol.OpMkdir, protocol.S3{Data: []byte(path), Val: mode}.Encode())
	return err
}

// MkdirAll creates path and any missing parents, like os.MkdirAll.
func (c *Client) MkdirAll(path string, mode uint32) error {
	_, err := c.call(protocol.OpMkdirEx, protocol.S3{Data: []byte(path), Val: mode}.Encode())
	return err
}

// Rmdir removes an empty directory.
func (c *Client) Rmdir(path string) error {
	_, err := c.call(protocol.OpRmdir, protocol.S1{Data: []byte(path)}.Encode())
	return err
}

// Unlink removes a file.
func (c *Client) Unlink(path string) error {
	_, err := c.call(protocol.OpUnlink, protocol.S1{Data: []byte(path)}.Encode())
	return err
}

// Rename moves oldPath to newPath.
func (c *Client) Rename(oldPath, newPath string) error {
	req := protocol.S2{Data1: []byte(oldPath), Data2: []byte(newPath)}
	_, err := c.call(protocol.OpRename, req.Encode())
	return err
}

// Getcwd returns the session's current working directory.
func (c *Client) Getcwd() (string, error) {
	resp, err := c.call(protocol.OpGetcwd, protocol.S0{Val: 0}.Encode())
	if err != nil {
		return "", err
	}
	s1, decErr := protocol.DecodeS1(resp)
	if decErr != nil {
		return "", decErr
	}
	return string(s1.Data), nil
}

// Chdir changes the session's current working directory.
func (c *Client) Chdir(path string) error {
	_, err := c.call(protocol.OpChdir, protocol.S1{Data: []byte(path)}.Encode())
	return err
}

// Filesize returns the size in bytes of the named file.
func (c *Client) Filesize(path string) (uint32, error) {
	resp, err := c.call(protocol.OpFilesize, protocol.S1{Data: []byte(path)}.Encode())
	if err != nil {
		return 0, err
	}
	s0, decErr := protocol.DecodeS0(resp)
	if decErr != nil {
		return 0, decErr
	}
	return s0.Val, nil
}

// FileExist reports whether path names an existing regular file.
func (c *Client) FileExist(path string) (bool, error) {
	resp, err := c.call(protocol.OpFileExist, protocol.S1{Data: []byte(path)}.Encode())
	if err != nil {
		return false, err
	}
	s0, decErr := protocol.DecodeS0(resp)
	if decErr != nil {
		return false, decErr
	}
	return s0.Val != 0, nil
}

// DirExist reports whether path names an existing directory.
func (c *Client) DirExist(path string) (bool, error) {
	resp, err := c.call(protocol.OpDirExist, protocol.S1{Data: []byte(path)}.Encode())
	if err != nil {
		return false, err
	}
	s0, decErr := protocol.DecodeS0(resp)
	if decErr != nil {
		return false, decErr
	}
	return s0.Val != 0, nil
}
