// Package commands implements the satlog CLI commands.
package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satlink-project/satlink-go/pkg/log"
)

// FilterOptions holds the filter flags shared by view and filter.
type FilterOptions struct {
	SessionID  string
	Component  string
	Category   string
	DatagramID string
	RequestID  string
	TimeStart  string
	TimeEnd    string
}

// BuildFilter converts flag values into a log.Filter.
func (o FilterOptions) BuildFilter() (log.Filter, error) {
	filter := log.Filter{SessionID: o.SessionID}

	if o.Component != "" {
		c, err := ParseComponentFlag(o.Component)
		if err != nil {
			return filter, err
		}
		filter.Component = &c
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.DatagramID != "" {
		id, err := strconv.ParseUint(o.DatagramID, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid datagram id %q: %w", o.DatagramID, err)
		}
		filter.DatagramID = &id
	}
	if o.RequestID != "" {
		id, err := strconv.ParseUint(o.RequestID, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid request id %q: %w", o.RequestID, err)
		}
		filter.RequestID = &id
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// ParseComponentFlag parses a component name.
func ParseComponentFlag(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "arbiter":
		return log.ComponentArbiter, nil
	case "delivery":
		return log.ComponentDelivery, nil
	case "coexist", "coexistence":
		return log.ComponentCoexist, nil
	case "service":
		return log.ComponentService, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (use arbiter, delivery, coexist, service)", s)
	}
}

// ParseCategoryFlag parses a category name.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "request":
		return log.CategoryRequest, nil
	case "state":
		return log.CategoryState, nil
	case "datagram":
		return log.CategoryDatagram, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (use request, state, datagram, error)", s)
	}
}
