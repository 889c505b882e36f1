//go:build !unix

package iosocket

import "errors"

var errUnsupportedPlatform = errors.New("iosocket: readiness notifier unsupported on this platform")

type noopPoller struct{}

func newPoller() (poller, error) { return nil, errUnsupportedPlatform }

func (noopPoller) add(fd int, writable bool, gen uint32) error    { return errUnsupportedPlatform }
func (noopPoller) modify(fd int, writable bool, gen uint32) error { return errUnsupportedPlatform }
func (noopPoller) remove(fd int) error                            { return errUnsupportedPlatform }
func (noopPoller) wait() ([]readyEvent, error)                    { return nil, errUnsupportedPlatform }
func (noopPoller) close() error                                   { return errUnsupportedPlatform }
