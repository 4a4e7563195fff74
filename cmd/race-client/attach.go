// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/race/internal/config"
	"github.com/sage-x-project/race/internal/logger"
	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/baseclient"
	"github.com/sage-x-project/race/pkg/bridge"
	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/client"
	"github.com/sage-x-project/race/pkg/decryptioncache"
	"github.com/sage-x-project/race/pkg/encryptor"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/handler/wasmhost"
	"github.com/sage-x-project/race/pkg/profile"
	"github.com/sage-x-project/race/pkg/secret"
	"github.com/sage-x-project/race/pkg/transport"
	"github.com/sage-x-project/race/pkg/transport/wsconn"
	"github.com/sage-x-project/race/pkg/types"
)

var (
	attachConfigPath string
	attachBundlePath string
	attachSelf       string
	attachGameAddr   string
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach to a game and run its event loop",
	Long:  `Attaches this node to a game behind a transactor's broadcast stream, drives the game's bytecode handler, and logs events to stdout until interrupted.`,
	RunE:  runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().StringVarP(&attachConfigPath, "config", "c", "race.yaml", "Path to the config file")
	attachCmd.Flags().StringVar(&attachBundlePath, "bundle", "", "Path to the game's compiled WASM bundle")
	attachCmd.Flags().StringVar(&attachSelf, "self", "", "This node's address")
	attachCmd.Flags().StringVar(&attachGameAddr, "game", "", "Address of the game to attach to")
	attachCmd.MarkFlagRequired("bundle")
	attachCmd.MarkFlagRequired("self")
	attachCmd.MarkFlagRequired("game")
}

// jsonAccount is the wire shape of an on-chain game account this
// reference client expects; the real transactor's account encoding is
// an external collaborator's concern (the exact wire format is out of
// scope here), so this JSON shape is a stand-in a transactor-side
// adapter can replace without touching pkg/baseclient.
type jsonAccount struct {
	GameId                  int             `json:"game_id"`
	MaxPlayers              uint16          `json:"max_players"`
	EntryType               types.EntryType `json:"entry_type"`
	Players                 []types.Player  `json:"players"`
	Servers                 []types.Server  `json:"servers"`
	InitData                []byte          `json:"init_data"`
	AccessVersion           uint64          `json:"access_version"`
	SettleVersion           uint64          `json:"settle_version"`
	CheckpointAccessVersion uint64          `json:"checkpoint_access_version"`
	CheckpointData          []byte          `json:"checkpoint_data"`
}

type jsonAccountDecoder struct{}

func (jsonAccountDecoder) Decode(raw []byte) (baseclient.Account, error) {
	var a jsonAccount
	if err := json.Unmarshal(raw, &a); err != nil {
		return baseclient.Account{}, fmt.Errorf("decode account: %w", err)
	}
	return baseclient.Account{
		GameId:                  a.GameId,
		MaxPlayers:              a.MaxPlayers,
		EntryType:               a.EntryType,
		Players:                 a.Players,
		Servers:                 a.Servers,
		InitData:                a.InitData,
		AccessVersion:           a.AccessVersion,
		SettleVersion:           a.SettleVersion,
		CheckpointAccessVersion: a.CheckpointAccessVersion,
		CheckpointData:          a.CheckpointData,
	}, nil
}

func runAttach(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(attachConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewDefaultLogger()
	log.SetLevel(parseLevel(cfg.Logging.Level))

	self := types.Address(attachSelf)
	gameAddr := types.Address(attachGameAddr)

	bundle, err := os.ReadFile(attachBundlePath)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host, err := wasmhost.Load(ctx, bundle)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}
	defer host.Close(ctx)

	ks, err := newFileKeyStorage(cfg.KeyStore.Directory)
	if err != nil {
		return err
	}
	enc := encryptor.New(self, ks)
	if err := enc.Generate(); err != nil {
		return fmt.Errorf("generate keys: %w", err)
	}

	dc := decryptioncache.New()
	cl := client.New(self, enc, secret.NewStore(), dc)
	br := bridge.New(host)

	loader := profile.NewLoader(
		profile.FetcherFunc(func(ctx context.Context, addr types.Address) (profile.Profile, error) {
			return profile.Profile{Addr: addr}, nil
		}),
		func(id string, p profile.Profile) {
			log.Info("profile resolved", logger.String("id", id), logger.String("addr", string(p.Addr)))
		},
	)

	conn := wsconn.New(cfg.Transport.Endpoint)
	collector := metrics.GetGlobalCollector()

	cb := baseclient.Callbacks{
		OnEvent: func(snap baseclient.Snapshot, ev event.GameEvent) {
			kind := fmt.Sprintf("%d", ev.Kind())
			metrics.EventsHandled.WithLabelValues(kind).Inc()
			log.Info("event", logger.Int("game_id", snap.GameId), logger.String("kind", kind))
		},
		OnMessage: func(sender types.Address, content string) {
			log.Info("message", logger.String("sender", string(sender)), logger.String("content", content))
		},
		OnTxState: func(kind broadcast.TxStateKind, players []types.Address) {
			log.Info("tx state", logger.Int("kind", int(kind)), logger.Int("players", len(players)))
		},
		OnConnectionState: func(state transport.ConnState) {
			log.Info("connection state", logger.String("state", state.String()))
			if state == transport.Connected || state == transport.Reconnected {
				metrics.ConnectionState.Set(1)
			} else {
				metrics.ConnectionState.Set(0)
			}
		},
		OnError: func(kind raceerr.Kind, arg string) {
			log.Error("base client error", logger.String("kind", string(kind)), logger.String("arg", arg))
		},
		OnReady: func(snap baseclient.Snapshot) {
			log.Info("ready", logger.Int("game_id", snap.GameId), logger.Int("players", len(snap.Players)))
		},
		OnProfile: func(id string, p profile.Profile) {
			collector.RecordProfileLoad(true)
		},
	}

	bc := baseclient.New(self, gameAddr, conn, br, cl, dc, loader, jsonAccountDecoder{}, cb, cfg.Reconnect.MaxRetries)

	if err := bc.Attach(ctx); err != nil {
		metrics.AttachesStarted.WithLabelValues("failure").Inc()
		return fmt.Errorf("attach: %w", err)
	}
	metrics.AttachesStarted.WithLabelValues("success").Inc()

	if err := bc.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
