/*
File Name:  Status.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package core

// Init/LoadConfig status codes. Anything other than ExitSuccess indicates a fatal failure.
const (
	ExitSuccess           = 0
	ExitErrorConfigAccess = 1
	ExitErrorConfigRead   = 2
	ExitErrorConfigParse  = 3
	ExitErrorLogInit      = 4
	ExitErrorIdentityInit = 5
)
