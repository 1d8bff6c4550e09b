package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/util"
	"golang.org/x/sync/errgroup"
)

/*
ShardedAsofJoin partitions a grouped as-of join by hashing the group key, so
that every left row lands in the same shard as every right row it could match.
Shards are joined concurrently and their output merged back into left order by
ordinal. The result is identical to AsofJoin on the same inputs.

Ungrouped joins cannot be partitioned by key and run on a single shard.
*/

////////////////////////////////////////////////////////////////////////////////

// MaxShards bounds the shard count accepted by ShardedAsofJoin.
const MaxShards = 1024

// ShardOf returns the shard a group key value hashes to.
func ShardOf(v any, shards int) int {
	return int(uint64(murmur3.Sum32(table.AppendKey(nil, v))) % uint64(shards))
}

func partition(t *table.Table, keyIdx int, shards int) map[int][]*Tuple {
	tuples := make([]*Tuple, len(t.Rows))
	for i, row := range t.Rows {
		tuples[i] = NewTuple(row, i)
	}
	return util.GroupBy(tuples, func(tup *Tuple) int {
		return ShardOf(tup.Row[keyIdx], shards)
	})
}

func drain(ctx context.Context, node Node) ([]*Tuple, error) {
	tuples := []*Tuple{}
	for {
		tup, err := node.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return tuples, nil
			}
			return nil, err
		}
		tuples = append(tuples, tup)
	}
}

// ShardedAsofJoin joins two tables across the given number of shards.
func ShardedAsofJoin(
	ctx context.Context,
	left, right *table.Table,
	shards int,
	opts ...AsofOption,
) (*table.Table, error) {
	spec := NewAsofSpec(opts...)
	b, err := spec.bind(left.Schema, right.Schema)
	if err != nil {
		return nil, err
	}
	if shards > MaxShards {
		return nil, newInvalidArgument("shards", "%d exceeds maximum of %d", shards, MaxShards)
	}
	if shards <= 1 || b.leftKey < 0 {
		return AsofJoin(ctx, left, right, opts...)
	}

	leftParts := partition(left, b.leftKey, shards)
	rightParts := partition(right, b.rightKey, shards)
	outputs := make([][]*Tuple, shards)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		i := i
		if len(leftParts[i]) == 0 {
			continue
		}
		g.Go(func() error {
			shardSpec := spec
			shardSpec.Workers = 1
			node, err := NewAsofJoinNode(
				NewTuplesNode(fmt.Sprintf("shard %d", i), left.Schema, leftParts[i]),
				NewTuplesNode(fmt.Sprintf("shard %d", i), right.Schema, rightParts[i]),
				shardSpec,
			)
			if err != nil {
				return err
			}
			defer node.Close(gctx)
			tuples, err := drain(gctx, node)
			if err != nil {
				return fmt.Errorf("failed to join shard %d: %w", i, err)
			}
			util.IncContextValue(ctx, "shards", 1)
			outputs[i] = tuples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schema := table.Merge(left.Schema, right.Schema, "_right")
	children := []Node{NewTuplesNode("empty", schema, nil)}
	for i, tuples := range outputs {
		if len(tuples) > 0 {
			children = append(children, NewTuplesNode(fmt.Sprintf("shard %d", i), schema, tuples))
		}
	}
	merge, err := NewMergeNode(children...)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, left.Name, merge)
}
