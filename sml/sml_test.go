package sml

func feedAll(a *Assembler, stream []byte) [][]byte {
	var msgs [][]byte
	for _, b := range stream {
		if msg, ok := a.Feed(b); ok {
			msgs = append(msgs, append([]byte(nil), msg...))
		}
	}
	return msgs
}
