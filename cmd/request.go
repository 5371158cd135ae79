package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"soundboard/board"
	"soundboard/scheduler"
)

var errNoMain = errors.New("missing main selection")

// request is one play request: a main selection and its attached chain
type request struct {
	Main     board.Selection
	Attached []scheduler.ChainLink
}

// parseRequest reads "pack/subfolder [pack/subfolder@delay ...]"
func parseRequest(fields []string, defaultDelay time.Duration) (request, error) {
	if len(fields) == 0 {
		return request{}, errNoMain
	}

	var req request
	req.Main = parseSelection(fields[0])
	for _, f := range fields[1:] {
		link, err := parseLink(f, defaultDelay)
		if err != nil {
			return request{}, err
		}
		req.Attached = append(req.Attached, link)
	}
	return req, nil
}

func parseSelection(s string) board.Selection {
	pack, subfolder, _ := strings.Cut(s, "/")
	return board.Selection{Pack: pack, Subfolder: subfolder}
}

// parseLink reads "pack/subfolder[@delay]". A bare number is milliseconds.
func parseLink(s string, defaultDelay time.Duration) (scheduler.ChainLink, error) {
	sel, delay := s, ""
	if i := strings.LastIndex(s, "@"); i >= 0 {
		sel, delay = s[:i], s[i+1:]
	}

	link := scheduler.ChainLink{Delay: defaultDelay}
	if delay != "" {
		d, err := parseDelay(delay)
		if err != nil {
			return scheduler.ChainLink{}, fmt.Errorf("attached sound %q: %w", s, err)
		}
		link.Delay = d
	}

	main := parseSelection(sel)
	link.Pack, link.Subfolder = main.Pack, main.Subfolder
	return link, nil
}

func parseDelay(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q", s)
	}
	return d, nil
}
