package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
)

// delGroupScript removes a set and every key it lists in one server-side step.
// Members share the set's hash tag, so the script stays on one cluster slot.
var delGroupScript = rueidis.NewLuaScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for _, k in ipairs(members) do
  redis.call('DEL', k)
end
redis.call('DEL', KEYS[1])
return #members
`)

// HSetGroup replaces every item and registers its key in the group set inside MULTI/EXEC.
// Each hash is deleted before HSET, so fields missing from the new item do not survive.
// Readers observe either none or all of the items.
func (s *Store) HSetGroup(ctx context.Context, groupKey string, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, 2*len(items)+3)
	cmds = append(cmds, s.b().Multi().Build())

	keys := make([]string, 0, len(items))
	for _, item := range items {
		cmds = append(cmds, s.b().Del().Key(item.Key).Build())
		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
		keys = append(keys, item.Key)
	}
	cmds = append(cmds,
		s.b().Sadd().Key(groupKey).Member(keys...).Build(),
		s.b().Exec().Build(),
	)

	return s.exec(ctx, cmds, db.OpHSet)
}

// GroupMembers lists the keys registered in a group set.
func (s *Store) GroupMembers(ctx context.Context, groupKey string) ([]string, error) {
	cmd := s.b().Smembers().Key(groupKey).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSMembers, Err: err}
	}
	return members, nil
}

// DelFromGroup deletes keys and unregisters them from the group inside MULTI/EXEC.
func (s *Store) DelFromGroup(ctx context.Context, groupKey string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	cmds := rueidis.Commands{
		s.b().Multi().Build(),
		s.b().Del().Key(keys...).Build(),
		s.b().Srem().Key(groupKey).Member(keys...).Build(),
		s.b().Exec().Build(),
	}
	return s.exec(ctx, cmds, db.OpDel)
}

// DelGroup deletes all members of a group and the group itself. Returns the member count.
func (s *Store) DelGroup(ctx context.Context, groupKey string) (int, error) {
	n, err := delGroupScript.Exec(ctx, s.client, []string{groupKey}, nil).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpEval, Err: err}
	}
	return int(n), nil
}

// exec sends a MULTI ... EXEC pipeline and checks every reply, including the queued ones inside EXEC.
func (s *Store) exec(ctx context.Context, cmds rueidis.Commands, op string) error {
	results := s.client.DoMulti(ctx, cmds...)
	last := len(results) - 1
	for i, res := range results[:last] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: op, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}

	replies, err := results[last].ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return db.ErrTxAborted
		}
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil {
			return &db.Error{Op: op, Err: fmt.Errorf("queued command %d: %w", i, err)}
		}
	}
	return nil
}
