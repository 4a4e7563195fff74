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

// Package baseclient is the event loop: attach, subscribe,
// dispatch every BroadcastFrame variant through pre-handler bookkeeping,
// the effect bridge and post-handler bookkeeping, and manage reconnects.
// It is the single task driving its GameContext's concurrency model, the
// only writer of that context.
package baseclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/bridge"
	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/checkpoint"
	"github.com/sage-x-project/race/pkg/client"
	"github.com/sage-x-project/race/pkg/decryptioncache"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/gamecontext"
	"github.com/sage-x-project/race/pkg/profile"
	"github.com/sage-x-project/race/pkg/random"
	"github.com/sage-x-project/race/pkg/transport"
	"github.com/sage-x-project/race/pkg/types"
)

// operationTimeoutMs is the advisory mask/lock operation timeout,
// scheduled through the context's dispatch and fired by logical clock,
// never wall-clock.
const operationTimeoutMs = 15_000

// accountFetchRetries/accountFetchBackoff match the default account
// fetch retry policy.
const (
	accountFetchRetries = 3
	accountFetchBackoff = 3 * time.Second
)

// Account is everything attachGame/reconnect needs out of the on-chain
// game account; fetching and decoding the real account bytes is an
// external collaborator's job (the exact blockchain
// wire format is out of scope).
type Account struct {
	GameId                  int
	MaxPlayers              uint16
	EntryType               types.EntryType
	Players                 []types.Player
	Servers                 []types.Server
	InitData                []byte
	AccessVersion           uint64
	SettleVersion           uint64
	CheckpointAccessVersion uint64
	// CheckpointData is the serialized handler state for GameId, nil for
	// a game with no settled checkpoint yet.
	CheckpointData []byte
}

// AccountDecoder turns the raw bytes transport.Connection.AttachGame
// returns into an Account.
type AccountDecoder interface {
	Decode(raw []byte) (Account, error)
}

// Snapshot is the read-only view of a GameContext handed to callbacks.
type Snapshot struct {
	GameId    int
	Players   []types.Player
	Servers   []types.Server
	Versions  types.Versions
	Timestamp uint64
	Running   bool
}

// Callbacks are the user-visible hooks of the event loop.
type Callbacks struct {
	OnEvent           func(snap Snapshot, ev event.GameEvent)
	OnMessage         func(sender types.Address, content string)
	OnTxState         func(kind broadcast.TxStateKind, players []types.Address)
	OnConnectionState func(state transport.ConnState)
	OnError           func(kind raceerr.Kind, arg string)
	OnReady           func(snap Snapshot)
	OnProfile         func(id string, p profile.Profile)
}

func (cb Callbacks) fireEvent(snap Snapshot, ev event.GameEvent) {
	if cb.OnEvent != nil {
		cb.OnEvent(snap, ev)
	}
}
func (cb Callbacks) fireMessage(sender types.Address, content string) {
	if cb.OnMessage != nil {
		cb.OnMessage(sender, content)
	}
}
func (cb Callbacks) fireTxState(kind broadcast.TxStateKind, players []types.Address) {
	if cb.OnTxState != nil {
		cb.OnTxState(kind, players)
	}
}
func (cb Callbacks) fireConnState(state transport.ConnState) {
	if cb.OnConnectionState != nil {
		cb.OnConnectionState(state)
	}
}
func (cb Callbacks) fireError(kind raceerr.Kind, arg string) {
	if cb.OnError != nil {
		cb.OnError(kind, arg)
	}
}
func (cb Callbacks) fireReady(snap Snapshot) {
	if cb.OnReady != nil {
		cb.OnReady(snap)
	}
}

// BaseClient drives one attached game's event loop. The zero value is
// not usable; construct with New.
type BaseClient struct {
	self       types.Address
	gameAddr   types.Address
	conn       transport.Connection
	bridge     *bridge.Bridge
	client     *client.Client
	dc         *decryptioncache.Cache
	loader     *profile.Loader
	decoder    AccountDecoder
	cb         Callbacks
	maxRetries int

	mu     sync.Mutex
	gctx   *gamecontext.GameContext
	stream <-chan transport.StreamItem
	ids    map[types.Address]int
	addrs  map[int]types.Address
	nextId int
}

// New returns a BaseClient for self attaching to gameAddr over conn,
// driving br for handler calls, cl for the randomization/decision crypto,
// dc for decrypted random values (shared with cl, cleared here on
// checkpoint), loader for profile resolution, and decoder to turn raw
// attach bytes into an Account. It terminates its Run loop with
// ReconnectExhausted after maxRetries consecutive disconnects.
func New(
	self, gameAddr types.Address,
	conn transport.Connection,
	br *bridge.Bridge,
	cl *client.Client,
	dc *decryptioncache.Cache,
	loader *profile.Loader,
	decoder AccountDecoder,
	cb Callbacks,
	maxRetries int,
) *BaseClient {
	return &BaseClient{
		self:       self,
		gameAddr:   gameAddr,
		conn:       conn,
		bridge:     br,
		client:     cl,
		dc:         dc,
		loader:     loader,
		decoder:    decoder,
		cb:         cb,
		maxRetries: maxRetries,
		ids:        make(map[types.Address]int),
		addrs:      make(map[int]types.Address),
	}
}

func (bc *BaseClient) registerNode(addr types.Address) int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if id, ok := bc.ids[addr]; ok {
		return id
	}
	id := bc.nextId
	bc.nextId++
	bc.ids[addr] = id
	bc.addrs[id] = addr
	return id
}

// IdToAddr translates a registered node id to its address.
func (bc *BaseClient) IdToAddr(id int) (types.Address, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	addr, ok := bc.addrs[id]
	if !ok {
		return "", raceerr.New(raceerr.KindUnknownId, "", nil)
	}
	return addr, nil
}

// AddrToId translates a registered address to its node id.
func (bc *BaseClient) AddrToId(addr types.Address) (int, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	id, ok := bc.ids[addr]
	if !ok {
		return 0, raceerr.New(raceerr.KindUnknownAddr, string(addr), nil)
	}
	return id, nil
}

func (bc *BaseClient) snapshot() Snapshot {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	g := bc.gctx
	return Snapshot{
		GameId:    g.GameId,
		Players:   append([]types.Player(nil), g.Players...),
		Servers:   append([]types.Server(nil), g.Servers...),
		Versions:  g.Versions,
		Timestamp: g.Timestamp,
		Running:   g.Running,
	}
}

func (bc *BaseClient) fetchAccount(ctx context.Context) (Account, error) {
	var lastErr error
	for attempt := 0; attempt < accountFetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Account{}, ctx.Err()
			case <-time.After(accountFetchBackoff):
			}
		}
		raw, err := bc.conn.AttachGame(ctx, bc.gameAddr, transport.AttachGameParams{PlayerAddr: bc.self})
		if err != nil {
			lastErr = err
			continue
		}
		account, err := bc.decoder.Decode(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return account, nil
	}
	return Account{}, raceerr.New(raceerr.KindOnchainDataNotFound, string(bc.gameAddr), lastErr)
}

// Attach runs the attachGame pipeline: fetch the game
// account, build the initial GameContext, apply the checkpoint, open the
// subscription at the account's settleVersion, run the handler's init,
// and emit a synthetic Init event. Run must be called afterward to drive
// the subscription loop.
func (bc *BaseClient) Attach(ctx context.Context) error {
	account, err := bc.fetchAccount(ctx)
	if err != nil {
		bc.cb.fireError(raceerr.KindOnchainDataNotFound, string(bc.gameAddr))
		return err
	}

	gctx := gamecontext.New(account.GameId)
	for _, p := range account.Players {
		if err := gctx.AddPlayer(p); err != nil {
			return err
		}
		bc.registerNode(p.Addr)
	}
	for _, s := range account.Servers {
		if err := gctx.AddServer(s); err != nil {
			return err
		}
		bc.registerNode(s.Addr)
	}
	gctx.Versions = types.Versions{AccessVersion: account.AccessVersion, SettleVersion: account.SettleVersion}

	if account.CheckpointData != nil {
		vd := &checkpoint.VersionedData{Id: account.GameId}
		vd.SetData(account.CheckpointData)
		gctx.Checkpoint.Data[account.GameId] = vd
		gctx.Checkpoint.UpdateRootAndProofs()
		gctx.HandlerState = account.CheckpointData
	}
	if err := gctx.ApplyCheckpoint(account.CheckpointAccessVersion, gctx.Versions.SettleVersion, account.SettleVersion); err != nil {
		bc.cb.fireError(raceerr.KindInitDataInvalid, "")
		return err
	}

	stream, err := bc.conn.Subscribe(ctx, bc.gameAddr, transport.SubscribeEventParams{SettleVersion: account.SettleVersion})
	if err != nil {
		bc.cb.fireError(raceerr.KindAttachFailed, err.Error())
		return err
	}

	bc.mu.Lock()
	bc.gctx = gctx
	bc.stream = stream
	bc.mu.Unlock()

	if _, err := bc.bridge.InitState(ctx, gctx, account.InitData); err != nil {
		bc.cb.fireError(raceerr.KindAttachFailed, err.Error())
		return err
	}

	bc.cb.fireEvent(bc.snapshot(), event.Init{})
	return nil
}

// reconnect resets the context from the latest on-chain account,
// re-applies the checkpoint, and reopens the subscription at the last
// known settleVersion (disconnected-resume handling).
func (bc *BaseClient) reconnect(ctx context.Context) error {
	bc.mu.Lock()
	gctx := bc.gctx
	settleVersion := gctx.Versions.SettleVersion
	bc.mu.Unlock()

	account, err := bc.fetchAccount(ctx)
	if err != nil {
		return err
	}

	gctx.Players = nil
	gctx.Servers = nil
	for _, p := range account.Players {
		if err := gctx.AddPlayer(p); err != nil {
			return err
		}
		bc.registerNode(p.Addr)
	}
	for _, s := range account.Servers {
		if err := gctx.AddServer(s); err != nil {
			return err
		}
		bc.registerNode(s.Addr)
	}
	gctx.Versions.AccessVersion = account.AccessVersion
	if err := gctx.ApplyCheckpoint(account.CheckpointAccessVersion, settleVersion, account.SettleVersion); err != nil {
		return err
	}

	stream, err := bc.conn.Subscribe(ctx, bc.gameAddr, transport.SubscribeEventParams{SettleVersion: settleVersion})
	if err != nil {
		return err
	}
	bc.mu.Lock()
	bc.stream = stream
	bc.mu.Unlock()
	return nil
}

// Run drives the subscription loop until ctx is done, the connection
// closes, detach empties the stream, or ReconnectExhausted fires. Events
// are processed strictly sequentially: no frame begins until the
// previous one has returned from the handler and its callback.
func (bc *BaseClient) Run(ctx context.Context) error {
	retries := 0
	for {
		bc.mu.Lock()
		stream := bc.stream
		bc.mu.Unlock()
		if stream == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-stream:
			if !ok {
				return nil
			}
			if item.IsState() {
				bc.cb.fireConnState(item.State)
				switch item.State {
				case transport.Disconnected:
					retries++
					if retries > bc.maxRetries {
						metrics.ReconnectAttempts.WithLabelValues("exhausted").Inc()
						err := raceerr.New(raceerr.KindReconnectExhausted, "", nil)
						bc.cb.fireError(raceerr.KindReconnectExhausted, "")
						return err
					}
					if err := bc.reconnect(ctx); err != nil {
						metrics.ReconnectAttempts.WithLabelValues("failure").Inc()
						bc.cb.fireError(raceerr.KindAttachFailed, err.Error())
						return err
					}
					metrics.ReconnectAttempts.WithLabelValues("success").Inc()
				case transport.Reconnected:
					retries = 0
				case transport.Closed:
					return nil
				}
				continue
			}
			bc.dispatchFrame(ctx, item.Frame)
		}
	}
}

func (bc *BaseClient) dispatchFrame(ctx context.Context, f broadcast.Frame) {
	kind := frameKind(f)
	start := time.Now()
	defer func() { metrics.FrameDispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds()) }()
	metrics.FramesDispatched.WithLabelValues(kind).Inc()

	switch v := f.(type) {
	case broadcast.Sync:
		bc.handleSync(v)
	case broadcast.Event:
		bc.handleEvent(ctx, v)
	case broadcast.Message:
		bc.cb.fireMessage(v.Sender, v.Content)
	case broadcast.TxState:
		bc.handleTxState(v)
	case broadcast.Backlogs:
		bc.handleBacklogs(ctx, v)
	}
}

// frameKind labels a broadcast.Frame for the frames-dispatched and
// frame-dispatch-duration metrics.
func frameKind(f broadcast.Frame) string {
	switch f.(type) {
	case broadcast.Sync:
		return "sync"
	case broadcast.Event:
		return "event"
	case broadcast.Message:
		return "message"
	case broadcast.TxState:
		return "tx_state"
	case broadcast.Backlogs:
		return "backlogs"
	default:
		return "unknown"
	}
}

// handleSync applies Sync bookkeeping: register new
// servers (transactor vs validator by address match), new players
// (ready), load their profiles, queue newly announced deposits for the
// handler to accept or reject, then bump accessVersion.
func (bc *BaseClient) handleSync(f broadcast.Sync) {
	bc.mu.Lock()
	gctx := bc.gctx
	bc.mu.Unlock()

	for _, s := range f.NewServers {
		role := types.RoleValidator
		if s.Addr == f.TransactorAddr {
			role = types.RoleTransactor
		}
		srv := types.Server{
			Node:     types.Node{Addr: s.Addr, Role: role, Status: types.NodeStatusReady},
			Endpoint: s.Endpoint,
		}
		if err := gctx.AddServer(srv); err != nil {
			bc.cb.fireError(raceerr.KindDuplicateAddress, string(s.Addr))
			continue
		}
		bc.registerNode(s.Addr)
	}
	for _, p := range f.NewPlayers {
		pl := types.Player{
			Node:     types.Node{Addr: p.Addr, Status: types.NodeStatusReady},
			Position: p.Position,
			Balance:  p.Balance,
		}
		if err := gctx.AddPlayer(pl); err != nil {
			bc.cb.fireError(raceerr.KindDuplicatePosition, string(p.Addr))
			continue
		}
		bc.registerNode(p.Addr)
		if bc.loader != nil {
			bc.loader.Load(string(p.Addr), p.Addr)
		}
	}
	for _, d := range f.NewDeposits {
		gctx.PendingDeposits[d.Player] += d.Amount
	}
	gctx.Versions.AccessVersion = f.AccessVersion
}

// handleEvent runs the Event frame dispatch: pre-handler
// bookkeeping, advance the logical clock (rejecting a regression),
// invoke the handler, check the post-handler state hash (soft failure),
// flush any settlement the effect queued, then notify the callback and,
// on a checkpoint effect, the Decryption Cache and a synthetic
// CheckpointReady.
func (bc *BaseClient) handleEvent(ctx context.Context, f broadcast.Event) {
	if err := bc.preHandlerBookkeeping(f.Event); err != nil {
		bc.cb.fireError(raceerr.KindHandleEventError, err.Error())
		return
	}

	bc.mu.Lock()
	gctx := bc.gctx
	bc.mu.Unlock()

	if err := gctx.AdvanceTimestamp(f.Timestamp); err != nil {
		bc.cb.fireError(raceerr.KindEventStateShaMismatch, err.Error())
		return
	}

	out, err := bc.bridge.HandleEvent(ctx, gctx, f.Event)
	if err != nil {
		bc.cb.fireError(raceerr.KindHandleEventError, err.Error())
		return
	}

	sum := sha256.Sum256(gctx.HandlerState)
	if hex.EncodeToString(sum[:]) != f.StateSha {
		metrics.StateShaMismatches.Inc()
		bc.cb.fireError(raceerr.KindEventStateShaMismatch, f.StateSha)
	}

	if _, ok := f.Event.(event.OperationTimeout); ok {
		metrics.OperationTimeouts.WithLabelValues("fired").Inc()
	}

	gctx.ApplyAndTakeSettles()

	bc.cb.fireEvent(bc.snapshot(), f.Event)

	if out.IsCheckpoint {
		bc.dc.Clear()
		bc.cb.fireEvent(bc.snapshot(), event.CheckpointReady{})
	}
}

func (bc *BaseClient) handleTxState(f broadcast.TxState) {
	bc.cb.fireTxState(f.Kind, f.Players)
	if f.Kind == broadcast.TxPlayerConfirming && bc.loader != nil {
		for _, p := range f.Players {
			bc.loader.Load(string(p), p)
		}
	}
}

// handleBacklogs reconstructs a Checkpoint from off-chain data plus the
// on-chain accessVersion already tracked, verifies its state hash, then
// replays every nested Event/Sync frame before signaling onReady.
func (bc *BaseClient) handleBacklogs(ctx context.Context, f broadcast.Backlogs) {
	bc.mu.Lock()
	gctx := bc.gctx
	bc.mu.Unlock()

	if f.HasCheckpoint {
		data, proofs, err := checkpoint.DecodeOffChain(f.CheckpointOffChain)
		if err != nil {
			bc.cb.fireError(raceerr.KindInitDataInvalid, err.Error())
			return
		}
		cp := checkpoint.New()
		cp.Data = data
		cp.Proofs = proofs
		cp.AccessVersion = gctx.Checkpoint.AccessVersion
		gctx.Checkpoint = cp
		gctx.HandlerState = cp.DataFor(gctx.GameId)

		sum := sha256.Sum256(gctx.HandlerState)
		if hex.EncodeToString(sum[:]) != f.StateSha {
			metrics.StateShaMismatches.Inc()
			bc.cb.fireError(raceerr.KindCheckpointStateShaMismatch, f.StateSha)
		}
	}

	metrics.BacklogEntriesReplayed.Add(float64(len(f.Entries)))
	for _, entry := range f.Entries {
		bc.dispatchFrame(ctx, entry)
	}

	bc.cb.fireReady(bc.snapshot())
}

// preHandlerBookkeeping runs the per-variant mutations
// before the event reaches the handler.
func (bc *BaseClient) preHandlerBookkeeping(ev event.GameEvent) error {
	bc.mu.Lock()
	gctx := bc.gctx
	bc.mu.Unlock()

	switch e := ev.(type) {
	case event.ShareSecrets:
		var advanced []uint32
		for _, sh := range e.Shares {
			switch sh.Target {
			case event.ShareTargetRandom:
				rs, err := gctx.RandomState(sh.Id)
				if err != nil {
					return err
				}
				wasReady := rs.Status == random.StatusReady
				if err := bc.client.ReceiveRandomShare(rs, e.Sender, sh); err != nil {
					return err
				}
				if !wasReady && rs.Status == random.StatusReady {
					advanced = append(advanced, sh.Id)
				}
			case event.ShareTargetDecision:
				ds, err := gctx.DecisionState(sh.Id)
				if err != nil {
					return err
				}
				if err := bc.client.ReceiveDecisionShare(ds, e.Sender, sh); err != nil {
					return err
				}
			}
		}
		if len(advanced) > 0 {
			if err := bc.applySecretsReady(gctx, advanced); err != nil {
				return err
			}
			bc.cb.fireEvent(bc.snapshot(), event.SecretsReady{RandomIds: advanced})
		}

	case event.AnswerDecision:
		ds, err := gctx.DecisionState(e.DecisionId)
		if err != nil {
			return err
		}
		return ds.AnswerDecision(e.Sender, e.Ciphertext, e.Digest)

	case event.Mask:
		rs, err := gctx.RandomState(e.RandomId)
		if err != nil {
			return err
		}
		if err := rs.Mask(e.Sender, e.Ciphertexts); err != nil {
			return err
		}
		bc.scheduleOperationTimeout(gctx, rs)

	case event.Lock:
		rs, err := gctx.RandomState(e.RandomId)
		if err != nil {
			return err
		}
		pairs := make([]random.Lock, len(e.CiphertextsAndDigests))
		for i, cd := range e.CiphertextsAndDigests {
			pairs[i] = random.Lock{Owner: e.Sender, Digest: cd.Digest}
		}
		if err := rs.Lock(e.Sender, pairs); err != nil {
			return err
		}
		for i, cd := range e.CiphertextsAndDigests {
			rs.Ciphertexts[i].Ciphertext = cd.Ciphertext
		}
		bc.scheduleOperationTimeout(gctx, rs)

	case event.Join:
		for _, p := range e.Players {
			pl := types.Player{
				Node:     types.Node{Addr: p.Addr, Status: types.NodeStatusReady},
				Position: p.Position,
				Balance:  p.Balance,
			}
			if err := gctx.AddPlayer(pl); err != nil {
				return err
			}
			bc.registerNode(p.Addr)
			if bc.loader != nil {
				bc.loader.Load(string(p.Addr), p.Addr)
			}
		}

	case event.Leave:
		if !gctx.AllowExit {
			return raceerr.New(raceerr.KindInvalidOperator, string(e.PlayerAddr), nil)
		}
		gctx.RemovePlayer(e.PlayerAddr)

	case event.GameStart:
		gctx.Running = true
		for i := range gctx.Players {
			if gctx.Players[i].Status == types.NodeStatusPending && gctx.Players[i].PendingAtAccessVersion <= e.AccessVersion {
				gctx.Players[i].Status = types.NodeStatusReady
			}
		}
		for i := range gctx.Servers {
			if gctx.Servers[i].Status == types.NodeStatusPending && gctx.Servers[i].PendingAtAccessVersion <= e.AccessVersion {
				gctx.Servers[i].Status = types.NodeStatusReady
			}
		}

	case event.SecretsReady:
		return bc.applySecretsReady(gctx, e.RandomIds)
	}
	return nil
}

// applySecretsReady computes each listed random id's owned decryption
// map (inserted into the Decryption Cache by client.DecryptRandom) and
// folds any publicly revealed plaintext into RandomState.Revealed.
func (bc *BaseClient) applySecretsReady(gctx *gamecontext.GameContext, ids []uint32) error {
	for _, id := range ids {
		rs, err := gctx.RandomState(id)
		if err != nil {
			return err
		}
		values, err := bc.client.DecryptRandom(rs)
		if err != nil {
			return err
		}
		for idx, v := range values {
			if rs.Ciphertexts[idx].Ownership.Kind == random.OwnershipRevealed {
				rs.Revealed[idx] = v
			}
		}
	}
	return nil
}

func (bc *BaseClient) scheduleOperationTimeout(gctx *gamecontext.GameContext, rs *random.State) {
	addrs := rs.PendingAddrs()
	if len(addrs) == 0 {
		return
	}
	gctx.SetDispatch(gctx.Timestamp+operationTimeoutMs, event.OperationTimeout{Addrs: addrs})
	metrics.OperationTimeouts.WithLabelValues("scheduled").Inc()
}

// SubmitEvent wraps raw in a Custom event addressed from self and sends
// it to the transactor.
func (bc *BaseClient) SubmitEvent(ctx context.Context, raw []byte) error {
	return bc.conn.SubmitEvent(ctx, bc.gameAddr, event.Custom{Sender: bc.self, Raw: raw})
}

// SubmitMessage sends a plain chat message.
func (bc *BaseClient) SubmitMessage(ctx context.Context, content string) error {
	return bc.conn.SubmitMessage(ctx, bc.gameAddr, content)
}

// Exit leaves the attached game, optionally keeping the underlying
// connection open for other games.
func (bc *BaseClient) Exit(ctx context.Context, keepConnection bool) error {
	if err := bc.conn.ExitGame(ctx, bc.gameAddr); err != nil {
		return err
	}
	if !keepConnection {
		return bc.conn.Disconnect(ctx)
	}
	return nil
}

// Detach stops Run without touching the underlying connection.
func (bc *BaseClient) Detach() {
	bc.mu.Lock()
	bc.stream = nil
	bc.mu.Unlock()
}
