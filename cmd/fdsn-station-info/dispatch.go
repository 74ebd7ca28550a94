package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flyrok/fdsn-station-info/pkg/client"
	"github.com/flyrok/fdsn-station-info/pkg/stationxml"
)

// stationFetcher is satisfied by *client.Client.
type stationFetcher interface {
	GetStations(ctx context.Context, q client.StationQuery) (*stationxml.Inventory, error)
}

// dispatch issues the one station request described by c.
func dispatch(ctx context.Context, fetcher stationFetcher, c criteria, logger *slog.Logger) (*stationxml.Inventory, error) {
	q := c.StationQuery()
	if q.Radius == nil {
		logger.Info("requesting stations", "mode", "unconstrained radius")
	} else {
		logger.Info("requesting stations", "mode", "radius constrained")
	}

	inv, err := fetcher.GetStations(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("station request: %w", err)
	}
	logger.Info("received inventory", "networks", len(inv.Networks), "channels", inv.ChannelCount())
	return inv, nil
}
