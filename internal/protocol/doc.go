// Package protocol defines the frames exchanged with the remote browser
// session and the codec used to put them on the wire.
//
// Every frame is a JSON object whose "_command" field names the handler:
//
//	{"_command":"loadStarted","id":"7","url":"http://example.com"}
//	{"_command":"mutation","_data":["applyChanged",[],[...],[],[]]}
//
// Encoding goes through bytedance/sonic in standard-library compatible mode.
package protocol
