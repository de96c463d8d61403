//go:build !(linux && cgo)

package agent

import (
	"context"
	"fmt"

	"github.com/rancher/netagentd/internal/socket"
)

func dialSockets(_ context.Context, _, _, _ string) (socket.Set, error) {
	return socket.Set{}, fmt.Errorf("netagentd: the zmq4 transport requires a linux/cgo build")
}
