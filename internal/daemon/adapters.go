// SPDX-License-Identifier: MIT

package daemon

import (
	"context"

	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/ingest"
	"github.com/ManuGH/relay247/internal/pipeline/exec/ffmpeg"
)

type launcherAdapter struct {
	l *ffmpeg.Launcher
}

func (a launcherAdapter) Launch(ctx context.Context, source, ingestURL string, standby bool) (controller.Process, error) {
	sup, err := a.l.Launch(ctx, source, ingestURL, standby)
	if err != nil {
		// A typed nil would make the controller think it holds a process.
		return nil, err
	}
	return sup, nil
}

type ingestAdapter struct {
	svc *ingest.Service
}

func (a ingestAdapter) GetOrCreateIngestEndpoint(ctx context.Context) (controller.Endpoint, error) {
	ep, err := a.svc.GetOrCreateIngestEndpoint(ctx)
	if err != nil {
		return controller.Endpoint{}, err
	}
	return controller.Endpoint{StreamID: ep.StreamID, IngestURL: ep.IngestURL}, nil
}

func (a ingestAdapter) CreateAndBindBroadcast(ctx context.Context, streamID string) (string, error) {
	return a.svc.CreateAndBindBroadcast(ctx, streamID)
}
