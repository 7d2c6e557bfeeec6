// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/querydir"
	"github.com/pdiddy/snowball/pkg/types"
)

// ConfirmSettings validates and stores new settings for q. An
// Uninitialized query becomes Filtered2.
func (e *Engine) ConfirmSettings(ctx context.Context, q *Query, setting types.QuerySetting) error {
	if !q.lock.TryLock() {
		return fmt.Errorf("%w: %s", ErrBusy, q.Name)
	}
	defer q.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSetting(setting); err != nil {
		return err
	}
	return e.confirm(q, setting)
}

func (e *Engine) confirm(q *Query, setting types.QuerySetting) error {
	setting.Type = q.Type
	if needsKeywords(q.Type) && len(setting.MandatoryKeyWords) == 0 {
		return ErrNoKeywords
	}
	if setting.StartDOIs == nil {
		setting.StartDOIs = q.Setting.StartDOIs
	}
	if err := q.dir.WriteSettings(setting); err != nil {
		e.log.Error("writing settings", zap.String("query", q.Name), zap.Error(err))
		return err
	}
	if !q.dir.Exists(querydir.Accepted) {
		if err := q.dir.WriteIDs(querydir.Accepted, q.Accepted); err != nil {
			return err
		}
	}
	q.Setting = setting
	if q.Status == types.StatusUninitialized {
		e.setStatus(q, types.StatusFiltered2)
	}
	return nil
}
