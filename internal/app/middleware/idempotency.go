package middleware

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/commands"
	"glampbook/internal/pkg/errs"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  string
	Pending    bool
	OccurredAt time.Time
}

type IdempotencyStore interface {
	// Claim inserts rec as a pending record unless the key is taken. A
	// pending record that started before staleBefore is taken over. When
	// claimed is false the stored record is returned.
	Claim(ctx context.Context, rec IdempotencyRecord, staleBefore time.Time) (stored IdempotencyRecord, claimed bool, err error)
	// Complete replaces the pending record with the final outcome.
	Complete(ctx context.Context, rec IdempotencyRecord) error
	// Release drops a pending record so the key can run again.
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errs.New("middleware: idempotent command requires result prototype")

// ErrRequestInFlight is returned while another request with the same key
// is still running.
var ErrRequestInFlight = errs.Mark(errs.New("middleware: request with this idempotency key is in progress"), errs.ErrConflict)

// claimLease bounds how long a pending claim blocks its key. A process that
// dies mid-command leaves its claim behind until then.
const claimLease = time.Minute

// cacheableKinds are outcomes that replaying the same request would
// reproduce. Transient failures are not cached so the client may retry.
var cacheableKinds = map[string]bool{
	"not_found":          true,
	"unavailable":        true,
	"capacity_exceeded":  true,
	"invalid_transition": true,
	"already_canceled":   true,
	"invalid_input":      true,
}

// Idempotency replays the stored outcome of a command whose key was already
// seen. Keys are scoped per command type and per caller. The key is claimed
// before dispatch, so a concurrent duplicate fails with ErrRequestInFlight
// instead of running the command a second time.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (result any, err error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := scopedKey(ctx, cmd.Key(), idCmd.IdempotencyKey())
			now := time.Now().UTC()
			stored, claimed, err := store.Claim(ctx, IdempotencyRecord{Key: key, Pending: true, OccurredAt: now}, now.Add(-claimLease))
			if err != nil {
				return nil, err
			}
			if !claimed {
				if stored.Pending {
					return nil, errs.Wrapf(ErrRequestInFlight, "key %s", idCmd.IdempotencyKey())
				}
				return replay(stored, idCmd, codec)
			}

			// The outcome is recorded even if the caller went away after commit.
			bg := context.WithoutCancel(ctx)
			settled := false
			defer func() {
				if !settled {
					_ = store.Release(bg, key)
				}
			}()

			result, err = next.Dispatch(ctx, cmd)
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				kind := errs.Kind(err)
				if !cacheableKinds[kind] {
					return nil, err
				}
				record.Error = err.Error()
				record.ErrorKind = kind
				settled = true
				if saveErr := store.Complete(bg, record); saveErr != nil {
					return nil, errs.Wrap(err, saveErr.Error())
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			settled = true
			if saveErr := store.Complete(bg, record); saveErr != nil {
				return nil, saveErr
			}
			return result, nil
		})
	}
}

func scopedKey(ctx context.Context, commandKey, idempotencyKey string) string {
	caller := ""
	if p, ok := auth.FromContext(ctx); ok {
		caller = p.UserID
	}
	return commandKey + ":" + caller + ":" + idempotencyKey
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Error != "" {
		return nil, errs.FromKind(rec.ErrorKind, rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return proto, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
