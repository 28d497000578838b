package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"TokenLedger/internal/action"
	"TokenLedger/internal/ledger"
	"TokenLedger/internal/observability"
	"TokenLedger/internal/token"
)

// PrincipalDirectory answers existence checks for principals. Transfers and
// opens reject unknown recipients; a nil directory accepts everyone.
type PrincipalDirectory interface {
	IsPrincipal(p token.Principal) bool
}

// Engine is the single-threaded action processor. All three stores are owned
// exclusively by the engine goroutine; queries go through projections.
type Engine struct {
	sequence          int64
	hasher            *StateHasher
	accounts          *ledger.LedgerStore
	supply            *ledger.SupplyRegistry
	allowed           *ledger.AllowanceRegistry
	validator         *ledger.InvariantValidator
	principals        PrincipalDirectory
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
	notifyChan     chan<- CoreOutput
}

// CoreOutput is one fully applied action: its envelope, the row mutations it
// committed, and the principals to notify.
type CoreOutput struct {
	Envelope   *action.Envelope
	Changeset  *ledger.Changeset
	Recipients []token.Principal
	StateDelta []byte
}

func NewEngine(
	startSequence int64,
	cfg ledger.Config,
	persistChan, projectionChan, notifyChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	principals PrincipalDirectory,
	metrics *observability.Metrics,
) *Engine {
	accounts := ledger.NewLedgerStore(cfg)
	supply := ledger.NewSupplyRegistry()
	allowed := ledger.NewAllowanceRegistry()

	return &Engine{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		accounts:          accounts,
		supply:            supply,
		allowed:           allowed,
		validator:         ledger.NewInvariantValidator(accounts, supply, allowed),
		principals:        principals,
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
		notifyChan:        notifyChan,
	}
}

// ProcessAction is the main processing pipeline
func (c *Engine) ProcessAction(act action.Action) error {
	start := time.Now()
	actionType := act.ActionType().String()
	idempotencyKey := act.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := c.idempotency.IsDuplicate(actionType, idempotencyKey)

	// Step 2: Sequence validation
	partition := PartitionFor(act.SymbolCode())
	sourceSequence := act.SourceSequence()

	if err := c.sequenceValidator.ValidateSequence(partition, sourceSequence, idempotencyKey, isDuplicate); err != nil {
		c.recordRejected(actionType, "sequence")
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	// If duplicate, skip processing
	if isDuplicate {
		c.recordRejected(actionType, "duplicate")
		return nil
	}

	// Step 3: Dispatch. Handlers apply mutations to the live stores as they
	// go; every mutation carries its prior state, so a failed precondition
	// midway reverts the whole changeset in reverse order. An action either
	// commits fully or leaves no trace.
	timestamp := c.getActionTimestamp(act)
	cs := ledger.NewChangeset(idempotencyKey, c.sequence, timestamp.UnixMicro())

	recipients, err := c.dispatch(act, cs)
	if err != nil {
		c.revert(cs)
		c.recordRejected(actionType, rejectReason(err))
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Validate the committed changeset is well-formed
	if err := cs.Validate(); err != nil {
		panic(fmt.Sprintf("FATAL: malformed changeset: %v", err))
	}

	// Step 5: Compute state digest over affected rows
	stateDigest := c.computeStateDigest(cs)

	// Step 6: Compute state hash (capture the chain tip first)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	// Step 7: Build envelope
	payload, err := json.Marshal(act)
	if err != nil {
		panic(fmt.Sprintf("FATAL: cannot marshal action %s: %v", idempotencyKey, err))
	}

	envelope := &action.Envelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		ActionType:     act.ActionType(),
		SymbolCode:     act.SymbolCode(),
		Timestamp:      timestamp,
		SourceSequence: sourceSequence,
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Changeset:  cs,
		Recipients: recipients,
		StateDelta: stateDigest,
	}
	c.sequence++

	// Step 8: Post-checks. A violation here is an engine bug, not bad input.
	if err := c.postCheckInvariants(act); err != nil {
		if c.metrics != nil {
			c.metrics.InvariantBreaches.WithLabelValues("conservation").Inc()
		}
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 9: Emit outputs.
	// Persistence uses a BLOCKING send (backpressure) — the engine stalls
	// until the persistence worker drains. No action is ever lost.
	c.persistChan <- output

	// Projections: non-blocking send — drop on full. Projection workers
	// can rebuild from the action log if they fall behind.
	select {
	case c.projectionChan <- output:
	default:
		// Silently dropped — projection will catch up via rebuild
	}

	// Notifications: non-blocking send — informational only.
	if len(recipients) > 0 && c.notifyChan != nil {
		select {
		case c.notifyChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.NotifyDrops.Inc()
			}
		}
	}

	// Step 10: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(actionType, idempotencyKey)

	// Record metrics
	if c.metrics != nil {
		c.metrics.CoreActionsApplied.WithLabelValues(actionType).Inc()
		c.metrics.CoreActionDuration.WithLabelValues(actionType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
		for _, m := range cs.Mutations {
			c.metrics.CoreMutations.WithLabelValues(m.Op.String()).Inc()
		}
	}
	c.recordDomainMetrics(act)

	return nil
}

func (c *Engine) recordRejected(actionType, reason string) {
	if c.metrics != nil {
		c.metrics.CoreActionsRejected.WithLabelValues(actionType, reason).Inc()
	}
}

// rejectReason maps an error to its taxonomy class for metrics labels.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, token.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, token.ErrValidation):
		return "validation"
	case errors.Is(err, token.ErrState):
		return "state"
	case errors.Is(err, token.ErrInvariant):
		return "invariant"
	default:
		return "internal"
	}
}

func (c *Engine) recordDomainMetrics(act action.Action) {
	if c.metrics == nil {
		return
	}
	switch a := act.(type) {
	case *action.Create:
		c.metrics.TokensCreated.Inc()
	case *action.Issue:
		c.metrics.SupplyIssued.WithLabelValues(a.Quantity.Symbol.Code).Add(float64(a.Quantity.Amount))
	case *action.Retire:
		c.metrics.SupplyRetired.WithLabelValues(a.Quantity.Symbol.Code).Add(float64(a.Quantity.Amount))
	case *action.Transfer:
		c.metrics.TransfersApplied.WithLabelValues(a.Quantity.Symbol.Code, "direct").Inc()
	case *action.TransferFrom:
		c.metrics.TransfersApplied.WithLabelValues(a.Quantity.Symbol.Code, "delegated").Inc()
	}
}

// revert undoes an applied changeset in reverse order.
func (c *Engine) revert(cs *ledger.Changeset) {
	for i := len(cs.Mutations) - 1; i >= 0; i-- {
		m := cs.Mutations[i]
		switch m.Op.Table() {
		case ledger.TableStats:
			c.supply.Revert(m)
		case ledger.TableAllowed:
			c.allowed.Revert(m)
		default:
			c.accounts.Revert(m)
		}
	}
	cs.Mutations = nil
}

// getActionTimestamp extracts the versioned timestamp from the action.
// The engine MUST NOT call time.Now(). All timestamps are versioned inputs.
func (c *Engine) getActionTimestamp(act action.Action) time.Time {
	switch a := act.(type) {
	case *action.Create:
		return a.Timestamp
	case *action.Issue:
		return a.Timestamp
	case *action.Retire:
		return a.Timestamp
	case *action.Transfer:
		return a.Timestamp
	case *action.Approve:
		return a.Timestamp
	case *action.TransferFrom:
		return a.Timestamp
	case *action.Open:
		return a.Timestamp
	case *action.Close:
		return a.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: getActionTimestamp called with unhandled action type %T; engine cannot use wall-clock time", act))
	}
}

// computeStateDigest creates canonical bytes over the rows the changeset
// touched: sorted key paths, each followed by the row's current value
// (zero for deleted rows).
func (c *Engine) computeStateDigest(cs *ledger.Changeset) []byte {
	affected := make(map[string]ledger.Mutation)
	for _, m := range cs.Mutations {
		affected[m.KeyPath()] = m
	}

	paths := make([]string, 0, len(affected))
	for path := range affected {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	digest := make([]byte, 0, len(paths)*64)
	for _, path := range paths {
		m := affected[path]

		var value int64
		switch m.Op.Table() {
		case ledger.TableStats:
			if st, ok := c.supply.Lookup(m.Symbol.Code); ok {
				value = st.Supply.Amount
			}
		case ledger.TableAllowed:
			if row, ok := c.allowed.Lookup(m.Owner, m.Spender, m.Symbol.Code); ok {
				value = row.Quantity.Amount
			}
		default:
			if row, ok := c.accounts.Lookup(m.Owner, m.Symbol.Code); ok {
				value = row.Balance.Amount
			}
		}

		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, value)
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates invariants after the changeset is applied.
func (c *Engine) postCheckInvariants(act action.Action) error {
	// Conservation for the touched symbol: sum of balances == supply
	if code := act.SymbolCode(); code != nil {
		if _, ok := c.supply.Lookup(*code); ok {
			if err := c.validator.ValidateConservation(*code); err != nil {
				return fmt.Errorf("post-check conservation: %w", err)
			}
		}
	}

	// Periodic full sweep across every store
	if c.sequence > 0 && c.sequence%1000 == 0 {
		if err := c.validator.ValidateAll(); err != nil {
			return fmt.Errorf("post-check full sweep (at seq %d): %w", c.sequence, err)
		}
	}

	return nil
}

func (c *Engine) dispatch(act action.Action, cs *ledger.Changeset) ([]token.Principal, error) {
	switch a := act.(type) {
	case *action.Create:
		return c.handleCreate(a, cs)
	case *action.Issue:
		return c.handleIssue(a, cs)
	case *action.Retire:
		return c.handleRetire(a, cs)
	case *action.Transfer:
		return c.handleTransfer(a, cs)
	case *action.Approve:
		return c.handleApprove(a, cs)
	case *action.TransferFrom:
		return c.handleTransferFrom(a, cs)
	case *action.Open:
		return c.handleOpen(a, cs)
	case *action.Close:
		return c.handleClose(a, cs)
	default:
		return nil, fmt.Errorf("unknown action type: %T", act)
	}
}

// isPrincipal consults the directory; a nil directory accepts everyone.
func (c *Engine) isPrincipal(p token.Principal) bool {
	if c.principals == nil {
		return true
	}
	return c.principals.IsPrincipal(p)
}

func checkMemo(memo string) error {
	if len(memo) > action.MaxMemoBytes {
		return fmt.Errorf("%w: memo has more than %d bytes", token.ErrValidation, action.MaxMemoBytes)
	}
	return nil
}

func (c *Engine) handleCreate(a *action.Create, cs *ledger.Changeset) ([]token.Principal, error) {
	if !action.Authorized(a, a.Issuer) {
		return nil, fmt.Errorf("%w: create requires authority of issuer %s", token.ErrUnauthorized, a.Issuer)
	}
	if !c.isPrincipal(a.Issuer) {
		return nil, fmt.Errorf("%w: issuer account %s does not exist", token.ErrState, a.Issuer)
	}

	m, err := c.supply.Create(a.Issuer, a.MaxSupply, a.Issuer)
	if err != nil {
		return nil, err
	}
	cs.Append(m)
	return nil, nil
}

func (c *Engine) handleIssue(a *action.Issue, cs *ledger.Changeset) ([]token.Principal, error) {
	if !a.Quantity.Symbol.IsValid() {
		return nil, fmt.Errorf("%w: invalid symbol name %q", token.ErrValidation, a.Quantity.Symbol.Code)
	}
	if err := checkMemo(a.Memo); err != nil {
		return nil, err
	}

	st, ok := c.supply.Lookup(a.Quantity.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist, create token before issue",
			token.ErrState, a.Quantity.Symbol.Code)
	}
	if !action.Authorized(a, st.Issuer) {
		return nil, fmt.Errorf("%w: issue requires authority of issuer %s", token.ErrUnauthorized, st.Issuer)
	}

	// IncreaseSupply validates quantity, precision, and the cap
	m, err := c.supply.IncreaseSupply(a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	// Supply is always minted to the issuer first
	m, err = c.accounts.Credit(st.Issuer, a.Quantity, st.Issuer)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	if a.To == st.Issuer {
		return nil, nil
	}

	// Recipient differs: forward with an inline transfer issuer -> to, inside
	// the same atomic unit. The inline transfer carries only the issuer's
	// authority, so the recipient row is billed to the issuer.
	if !c.isPrincipal(a.To) {
		return nil, fmt.Errorf("%w: to account %s does not exist", token.ErrState, a.To)
	}

	m, err = c.accounts.Debit(st.Issuer, a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	m, err = c.accounts.Credit(a.To, a.Quantity, st.Issuer)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	return []token.Principal{st.Issuer, a.To}, nil
}

func (c *Engine) handleRetire(a *action.Retire, cs *ledger.Changeset) ([]token.Principal, error) {
	if !a.Quantity.Symbol.IsValid() {
		return nil, fmt.Errorf("%w: invalid symbol name %q", token.ErrValidation, a.Quantity.Symbol.Code)
	}
	if err := checkMemo(a.Memo); err != nil {
		return nil, err
	}

	st, ok := c.supply.Lookup(a.Quantity.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, a.Quantity.Symbol.Code)
	}
	if !action.Authorized(a, st.Issuer) {
		return nil, fmt.Errorf("%w: retire requires authority of issuer %s", token.ErrUnauthorized, st.Issuer)
	}

	m, err := c.supply.DecreaseSupply(a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	// Retired quantity is burned from the issuer's own balance
	m, err = c.accounts.Debit(st.Issuer, a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	return nil, nil
}

func (c *Engine) handleTransfer(a *action.Transfer, cs *ledger.Changeset) ([]token.Principal, error) {
	if a.From == a.To {
		return nil, fmt.Errorf("%w: cannot transfer to self", token.ErrInvariant)
	}
	if !action.Authorized(a, a.From) {
		return nil, fmt.Errorf("%w: transfer requires authority of %s", token.ErrUnauthorized, a.From)
	}
	if !c.isPrincipal(a.To) {
		return nil, fmt.Errorf("%w: to account %s does not exist", token.ErrState, a.To)
	}

	st, ok := c.supply.Lookup(a.Quantity.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, a.Quantity.Symbol.Code)
	}
	if !a.Quantity.IsValid() || a.Quantity.Amount <= 0 {
		return nil, fmt.Errorf("%w: must transfer positive quantity", token.ErrValidation)
	}
	if !a.Quantity.Symbol.Equal(st.Supply.Symbol) {
		return nil, fmt.Errorf("%w: symbol precision mismatch", token.ErrValidation)
	}
	if err := checkMemo(a.Memo); err != nil {
		return nil, err
	}

	// The recipient row is billed to whoever authorized the action: the
	// recipient if they co-signed, otherwise the sender.
	payer := a.From
	if action.Authorized(a, a.To) {
		payer = a.To
	}

	m, err := c.accounts.Debit(a.From, a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	m, err = c.accounts.Credit(a.To, a.Quantity, payer)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	return []token.Principal{a.From, a.To}, nil
}

func (c *Engine) handleApprove(a *action.Approve, cs *ledger.Changeset) ([]token.Principal, error) {
	if a.Owner == a.Spender {
		return nil, fmt.Errorf("%w: cannot allow self", token.ErrInvariant)
	}
	if !action.Authorized(a, a.Owner) {
		return nil, fmt.Errorf("%w: approve requires authority of %s", token.ErrUnauthorized, a.Owner)
	}
	if !c.isPrincipal(a.Spender) {
		return nil, fmt.Errorf("%w: spender account %s does not exist", token.ErrState, a.Spender)
	}

	st, ok := c.supply.Lookup(a.Quantity.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, a.Quantity.Symbol.Code)
	}
	if !a.Quantity.IsValid() || a.Quantity.Amount < 0 {
		return nil, fmt.Errorf("%w: invalid quantity", token.ErrValidation)
	}
	if !a.Quantity.Symbol.Equal(st.Supply.Symbol) {
		return nil, fmt.Errorf("%w: symbol precision mismatch", token.ErrValidation)
	}

	m, err := c.allowed.Set(a.Owner, a.Spender, a.Quantity, a.Owner)
	if err != nil {
		return nil, err
	}
	cs.Append(m)
	return []token.Principal{a.Owner, a.Spender}, nil
}

func (c *Engine) handleTransferFrom(a *action.TransferFrom, cs *ledger.Changeset) ([]token.Principal, error) {
	if a.From == a.To {
		return nil, fmt.Errorf("%w: cannot transfer to self", token.ErrInvariant)
	}
	if !action.Authorized(a, a.Spender) {
		return nil, fmt.Errorf("%w: transferFrom requires authority of spender %s", token.ErrUnauthorized, a.Spender)
	}
	if !c.isPrincipal(a.From) {
		return nil, fmt.Errorf("%w: from account %s does not exist", token.ErrState, a.From)
	}
	if !c.isPrincipal(a.To) {
		return nil, fmt.Errorf("%w: to account %s does not exist", token.ErrState, a.To)
	}

	st, ok := c.supply.Lookup(a.Quantity.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, a.Quantity.Symbol.Code)
	}
	if !a.Quantity.IsValid() || a.Quantity.Amount <= 0 {
		return nil, fmt.Errorf("%w: must transfer positive quantity", token.ErrValidation)
	}
	if !a.Quantity.Symbol.Equal(st.Supply.Symbol) {
		return nil, fmt.Errorf("%w: symbol precision mismatch", token.ErrValidation)
	}
	if err := checkMemo(a.Memo); err != nil {
		return nil, err
	}

	// Pre-check both debits so neither store mutates on a doomed action.
	// The revert path remains as a backstop.
	if err := c.allowed.CheckConsume(a.From, a.Spender, a.Quantity); err != nil {
		return nil, err
	}
	if err := c.accounts.CheckDebit(a.From, a.Quantity); err != nil {
		return nil, err
	}

	payer := a.Spender
	if action.Authorized(a, a.To) {
		payer = a.To
	}

	m, err := c.allowed.Consume(a.From, a.Spender, a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	m, err = c.accounts.Debit(a.From, a.Quantity)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	m, err = c.accounts.Credit(a.To, a.Quantity, payer)
	if err != nil {
		return nil, err
	}
	cs.Append(m)

	return []token.Principal{a.From, a.To, a.Spender}, nil
}

func (c *Engine) handleOpen(a *action.Open, cs *ledger.Changeset) ([]token.Principal, error) {
	if !action.Authorized(a, a.Payer) {
		return nil, fmt.Errorf("%w: open requires authority of payer %s", token.ErrUnauthorized, a.Payer)
	}
	if !c.isPrincipal(a.Owner) {
		return nil, fmt.Errorf("%w: owner account %s does not exist", token.ErrState, a.Owner)
	}

	st, ok := c.supply.Lookup(a.Symbol.Code)
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s does not exist", token.ErrState, a.Symbol.Code)
	}
	if !a.Symbol.Equal(st.Supply.Symbol) {
		return nil, fmt.Errorf("%w: symbol precision mismatch", token.ErrValidation)
	}

	m, err := c.accounts.Open(a.Owner, a.Symbol, a.Payer)
	if err != nil {
		return nil, err
	}
	if m != nil {
		cs.Append(*m)
	}
	return nil, nil
}

func (c *Engine) handleClose(a *action.Close, cs *ledger.Changeset) ([]token.Principal, error) {
	if !action.Authorized(a, a.Owner) {
		return nil, fmt.Errorf("%w: close requires authority of %s", token.ErrUnauthorized, a.Owner)
	}

	m, err := c.accounts.Close(a.Owner, a.Symbol.Code)
	if err != nil {
		return nil, err
	}
	cs.Append(m)
	return nil, nil
}

// --- Snapshot Restore & Startup Methods ---

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Accounts        map[ledger.AccountKey]ledger.Account
	Stats           map[string]ledger.Stats
	Allowances      map[ledger.AllowanceKey]ledger.Allowance
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the engine's in-memory state from a snapshot.
// On warm restart, load the latest snapshot then replay the action log.
func (c *Engine) RestoreFromSnapshot(snap *SnapshotState) {
	// Restore sequence
	c.sequence = snap.Sequence + 1 // Next sequence to assign

	// Restore state hash chain
	c.hasher.SetPrevHash(snap.StateHash)

	// Restore the three stores
	for key, row := range snap.Accounts {
		c.accounts.SetRow(key, row)
	}
	for code, row := range snap.Stats {
		c.supply.SetRow(code, row)
	}
	for key, row := range snap.Allowances {
		c.allowed.SetRow(key, row)
	}

	// Restore sequence validator state
	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.SetExpectedSequence(partition, nextSeq)
	}

	// Warm the dedup LRU
	c.idempotency.WarmLRU(snap.IdempotencyKeys)
}

// WarmLRU loads recent idempotency keys into the LRU cache.
// Avoids cold-path DB lookups for recently processed actions.
func (c *Engine) WarmLRU(keys []string) {
	c.idempotency.WarmLRU(keys)
}

// GetSequence returns the current global sequence number.
func (c *Engine) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *Engine) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// Accounts exposes the balance store for in-process reads (tests, recovery).
func (c *Engine) Accounts() *ledger.LedgerStore {
	return c.accounts
}

// Supply exposes the supply registry for in-process reads.
func (c *Engine) Supply() *ledger.SupplyRegistry {
	return c.supply
}

// Allowances exposes the allowance registry for in-process reads.
func (c *Engine) Allowances() *ledger.AllowanceRegistry {
	return c.allowed
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *Engine) CreateSnapshotState() *SnapshotState {
	accounts := make(map[ledger.AccountKey]ledger.Account, c.accounts.Len())
	c.accounts.ForEach(func(key ledger.AccountKey, row ledger.Account) {
		accounts[key] = row
	})

	stats := make(map[string]ledger.Stats, c.supply.Len())
	c.supply.ForEach(func(code string, row ledger.Stats) {
		stats[code] = row
	})

	allowances := make(map[ledger.AllowanceKey]ledger.Allowance, c.allowed.Len())
	c.allowed.ForEach(func(key ledger.AllowanceKey, row ledger.Allowance) {
		allowances[key] = row
	})

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Accounts:        accounts,
		Stats:           stats,
		Allowances:      allowances,
		SequenceState:   c.sequenceValidator.Partitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
