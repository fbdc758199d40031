package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the CIPSEND payload prompt (">").
//
// Important: This splitter assumes "No Echo" mode (ATE0). If echo is enabled,
// it would need modification to handle command echoes that precede the actual
// response.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match the payload prompt. ESP-AT emits a bare ">" (optionally
	// followed by a space) with no line ending.
	if bytes.HasPrefix(data, []byte(Prompt)) {
		if len(data) > len(Prompt) && data[len(Prompt)] == ' ' {
			return len(Prompt) + 1, data[0:len(Prompt)], nil
		}
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Lines splits a captured response into its CRLF-delimited tokens,
// dropping empties. It runs the same Splitter the stream path uses, so a
// buffered capture and a live scan tokenize identically.
func Lines(text string) []string {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Split(Splitter)
	var out []string
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, FAIL, SendOK, SendFail, Busy:
		return TypeFinal
	}

	// Link state notifications arrive outside any pending command.
	switch line {
	case UrcReady, UrcWifiUp, UrcWifiGotIP, UrcWifiDown, UrcTimeUpdated:
		return TypeURC
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, UrcDistConnect), strings.HasPrefix(line, UrcPassiveBytes):
		return TypeURC
	default:
		return TypeData
	}
}
