package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/uow"
)

// IdempotentCommand is implemented by commands a client may safely retry.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer to the handler's result type
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

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a command whose key was already
// seen. It must run inside Transaction: the record is written through the
// bound unit so it commits or rolls back together with the command. Failed
// commands leave no record and may be retried with the same key.
func Idempotency(codec ResultCodec) CommandMiddleware {
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			unit, ok := uow.FromContext(ctx)
			if !ok {
				return nil, uow.ErrUnitOfWorkMissing
			}
			key := scopedKey(cmd, idCmd.IdempotencyKey())
			store := unit.Idempotency()

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return derefPrototype(proto), nil
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			payload, err := codec.Encode(result)
			if err != nil {
				return nil, err
			}
			if err := store.Save(ctx, uow.IdempotencyRecord{Key: key, Payload: payload, OccurredAt: time.Now().UTC()}); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

// scopedKey keeps keys from different users and commands apart.
func scopedKey(cmd commands.Command, key string) string {
	actor := ""
	if a, ok := cmd.(Actor); ok {
		actor = a.ActorID()
	}
	return actor + "/" + cmd.Key() + "/" + key
}

func derefPrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return proto
}
