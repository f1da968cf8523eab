package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	initErr error
	once    sync.Once
)

// Init configures the snowflake node for this process. The server uses node 1
// and the worker node 2 so ids minted by both never collide.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	if initErr != nil {
		return fmt.Errorf("init snowflake node %d: %w", nodeID, initErr)
	}
	return nil
}

// New returns a time-ordered unique id. Init must have succeeded first.
func New() int64 {
	return node.Generate().Int64()
}

// NewString is New formatted for string-typed identifiers such as domain
// event ids.
func NewString() string {
	return node.Generate().String()
}
