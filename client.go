package gammon

// Client is a connection to the server, implemented per transport.
type Client interface {
	Address() string
	HandleReadWrite()
	Write(message []byte)
	Terminate(reason string)
	Terminated() bool
}
