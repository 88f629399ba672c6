package filter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/mocks"
)

func TestEngine_RejectsInvalidConfigBeforeQuerying(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no expectations: any store call fails the test
	engine := filter.NewEngine(mocks.NewMockStore(ctrl))
	cfg := filter.Config{RequireAssociation: true, ExcludeAssociation: true}

	_, err := engine.Apply(context.Background(), cfg)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = engine.Count(context.Background(), cfg)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = engine.Materialize(context.Background(), cfg)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	err = engine.Save(context.Background(), filter.Config{Name: "bad", RequireAssociation: true, ExcludeAssociation: true})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	err = engine.Save(context.Background(), filter.Config{RequireAssociation: true})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}
