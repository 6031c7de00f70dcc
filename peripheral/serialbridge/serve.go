// go-twi
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-twi.
//
// go-twi is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-twi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-twi; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package serialbridge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	twi "github.com/ZaparooProject/go-twi"
	"github.com/ZaparooProject/go-twi/internal/frame"
	"github.com/ZaparooProject/go-twi/peripheral/xmega"
)

// Serve answers bridge requests arriving on rw by calling p, until ctx is
// done or rw reaches EOF. When ctx ends and rw is an io.Closer, rw is
// closed to unblock the pending read.
func Serve(ctx context.Context, rw io.ReadWriter, p twi.Peripheral, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c, ok := rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	fr := frame.NewReader(rw)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tfi, req, err := fr.Read()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return nil
		case errors.Is(err, frame.ErrChecksumMismatch), errors.Is(err, frame.ErrFrameCorrupted):
			logger.Warn("dropping corrupted request", zap.Error(err))
			continue
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read request: %w", err)
		}
		if tfi != frame.HostToProxy || len(req) == 0 {
			logger.Warn("dropping frame with unexpected direction", zap.Uint8("tfi", tfi))
			continue
		}

		resp := handle(p, req[0], req[1:])
		out, err := frame.Encode(frame.ProxyToHost, resp)
		if err != nil {
			return err
		}
		if _, err := rw.Write(out); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		logger.Debug("served request", zap.Binary("request", req), zap.Binary("response", resp))
	}
}

func handle(p twi.Peripheral, op byte, args []byte) []byte {
	n, known := argCount[op]
	if !known {
		return []byte{OpError, op, ReasonUnknownOp}
	}
	if len(args) != n {
		return []byte{OpError, op, ReasonBadLength}
	}

	ok := []byte{op + 1}
	switch op {
	case OpWriteAddress:
		p.WriteAddress(args[0])
	case OpWriteData:
		p.WriteData(args[0])
	case OpReadData:
		return append(ok, p.ReadData())
	case OpStatus:
		return append(ok, xmega.EncodeStatus(p.Status()))
	case OpCommand:
		p.Command(decodeCommand(args[0]))
	case OpConfigure:
		p.Configure(twi.PeripheralConfig{
			Baud:    args[0],
			Ack:     twi.AckPolicy(args[1]),
			Timeout: twi.InactiveTimeout(args[2]),
		})
	case OpEnable:
		p.Enable()
	case OpDisable:
		p.Disable()
	case OpForceState:
		f, can := p.(twi.StateForcer)
		if !can {
			return []byte{OpError, op, ReasonUnsupported}
		}
		f.ForceState(twi.BusState(args[0] & xmega.StatusBusState))
	}
	return ok
}

func decodeCommand(v byte) twi.Command {
	switch v & 0x03 {
	case xmega.CmdStop:
		if v&xmega.CmdAckAct != 0 {
			return twi.CmdNackStop
		}
		return twi.CmdStop
	case xmega.CmdRecvTrans:
		return twi.CmdContinue
	default:
		return twi.CmdNone
	}
}
