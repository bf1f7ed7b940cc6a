package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// maxTxAttempts bounds retries when WATCH detects a concurrent write to the member set.
const maxTxAttempts = 3

// AddMembers writes items and adds their keys to setKey inside MULTI/EXEC.
func (s *Store) AddMembers(ctx context.Context, setKey string, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		cmds := make(rueidis.Commands, 0, len(items)+3)
		cmds = append(cmds, c.B().Multi().Build())
		cmds = append(cmds, hsetCommands(c, items)...)
		cmds = append(cmds, saddCommand(c, setKey, items), c.B().Exec().Build())
		return execResult(c.DoMulti(ctx, cmds...))
	})
}

// ReplaceMembers swaps the group tracked by setKey for items. The set is watched so a
// concurrent writer aborts the transaction, which is then retried.
func (s *Store) ReplaceMembers(ctx context.Context, setKey string, items []db.HashSetItem) (int, error) {
	var removed int
	for attempt := 1; ; attempt++ {
		err := s.client.Dedicated(func(c rueidis.DedicatedClient) error {
			var err error
			removed, err = replaceOnce(ctx, c, setKey, items)
			return err
		})
		if !errors.Is(err, db.ErrTxAborted) || attempt == maxTxAttempts {
			return removed, err
		}
	}
}

func replaceOnce(ctx context.Context, c rueidis.DedicatedClient, setKey string, items []db.HashSetItem) (int, error) {
	if err := c.Do(ctx, c.B().Watch().Key(setKey).Build()).Error(); err != nil {
		return 0, &db.Error{Op: db.OpWatch, Err: err}
	}
	old, err := c.Do(ctx, c.B().Smembers().Key(setKey).Build()).AsStrSlice()
	if err != nil {
		_ = c.Do(ctx, c.B().Unwatch().Build()).Error()
		return 0, &db.Error{Op: db.OpSMembers, Err: err}
	}

	cmds := make(rueidis.Commands, 0, len(items)+4)
	cmds = append(cmds, c.B().Multi().Build())
	cmds = append(cmds, c.B().Del().Key(append(old, setKey)...).Build())
	cmds = append(cmds, hsetCommands(c, items)...)
	if len(items) > 0 {
		cmds = append(cmds, saddCommand(c, setKey, items))
	}
	cmds = append(cmds, c.B().Exec().Build())

	if err := execResult(c.DoMulti(ctx, cmds...)); err != nil {
		return 0, err
	}
	return len(old), nil
}

func hsetCommands(c rueidis.DedicatedClient, items []db.HashSetItem) rueidis.Commands {
	cmds := make(rueidis.Commands, 0, len(items))
	for _, item := range items {
		cmd := c.B().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
	}
	return cmds
}

func saddCommand(c rueidis.DedicatedClient, setKey string, items []db.HashSetItem) rueidis.Completed {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	return c.B().Sadd().Key(setKey).Member(keys...).Build()
}

// execResult inspects the replies of MULTI ... EXEC. A nil EXEC reply means a watched
// key changed and nothing was applied.
func execResult(results []rueidis.RedisResult) error {
	if len(results) == 0 {
		return &db.Error{Op: db.OpExec, Err: errors.New("no replies")}
	}
	for i, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("queue command %d: %w", i, err)}
		}
	}
	exec := results[len(results)-1]
	replies, err := exec.ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return db.ErrTxAborted
		}
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for i, r := range replies {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}
	return nil
}
