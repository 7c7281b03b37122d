package server

type account struct {
	id       int
	email    []byte
	username []byte
	password []byte
	rating   int
}
