// Package protocol implements the RXS wire format: the framed control
// packet, its payload slot shapes (S0-S5), the data-channel
// frame/envelope, and the buffer scanner used to pull frames out of a
// byte stream.
package protocol

// Operation identifies the RPC being carried by a packet. Codes are a
// closed, stable enumeration; never renumber an existing entry.
type Operation uint16

const (
	OpUndef        Operation = 0
	OpFopen        Operation = 1
	OpFread        Operation = 2
	OpFwrite       Operation = 3
	OpFflush       Operation = 4
	OpFclose       Operation = 5
	OpFseek        Operation = 6
	OpFtell        Operation = 7
	OpRewind       Operation = 8
	OpPointCreate  Operation = 9
	OpPointClose   Operation = 10
	OpAuthorization Operation = 11
	OpLs           Operation = 12
	OpMkdir        Operation = 13
	OpMkdirEx      Operation = 14
	OpRmdir        Operation = 15
	OpGetcwd       Operation = 16
	OpChdir        Operation = 17
	OpUnlink       Operation = 18
	OpRename       Operation = 19
	OpFilesize     Operation = 20
	OpFileExist    Operation = 21
	OpDirExist     Operation = 22
	OpPort         Operation = 23

	// OperationMax bounds the closed enumeration; Scan rejects any
	// operation code outside (0, OperationMax].
	OperationMax Operation = 23
)

var operationNames = map[Operation]string{
	OpUndef:         "undef",
	OpFopen:         "fopen",
	OpFread:         "fread",
	OpFwrite:        "fwrite",
	OpFflush:        "fflush",
	OpFclose:        "fclose",
	OpFseek:         "fseek",
	OpFtell:         "ftell",
	OpRewind:        "rewind",
	OpPointCreate:   "point_create",
	OpPointClose:    "point_close",
	OpAuthorization: "authorization",
	OpLs:            "ls",
	OpMkdir:         "mkdir",
	OpMkdirEx:       "mkdir_ex",
	OpRmdir:         "rmdir",
	OpGetcwd:        "getcwd",
	OpChdir:         "chdir",
	OpUnlink:        "unlink",
	OpRename:        "rename",
	OpFilesize:      "filesize",
	OpFileExist:     "file_exist",
	OpDirExist:      "dir_exist",
	OpPort:          "port",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether o is a recognized, non-zero operation code.
func (o Operation) Valid() bool {
	return o > OpUndef && o <= OperationMax
}

// PacketType distinguishes a request from the two response outcomes.
type PacketType uint8

const (
	TypeRequest   PacketType = 1 // CS_A0
	TypeOKReply   PacketType = 2 // SC_B0
	TypeFailReply PacketType = 3 // SC_B1
)

func (t PacketType) Valid() bool {
	return t == TypeRequest || t == TypeOKReply || t == TypeFailReply
}
