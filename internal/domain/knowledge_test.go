package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKnowledgeItem(t *testing.T) {
	now := time.Now()
	item := NewKnowledgeItem(
		"k1",
		"How many vacation days do I get?",
		"Full-time employees receive 25 days.",
		"HR Policy",
		AccessTierGeneral,
		[]string{"vacation", "leave"},
		3,
		now,
	)

	assert.Equal(t, "k1", item.ID)
	assert.Equal(t, "How many vacation days do I get?", item.Question)
	assert.Equal(t, "Full-time employees receive 25 days.", item.Answer)
	assert.Equal(t, "HR Policy", item.Category)
	assert.Equal(t, AccessTierGeneral, item.AccessTier)
	assert.Equal(t, []string{"vacation", "leave"}, item.Keywords)
	assert.Equal(t, 3, item.Priority)
	assert.True(t, item.Active)
	assert.Equal(t, now, item.CreatedAt)
	assert.Equal(t, now, item.UpdatedAt)
}

func TestKnowledgeItem_Provenance(t *testing.T) {
	item := &KnowledgeItem{}
	assert.Equal(t, DefaultKnowledgeSource, item.Provenance())

	item.Source = "   "
	assert.Equal(t, DefaultKnowledgeSource, item.Provenance())

	item.Source = "Employee Handbook 2024"
	assert.Equal(t, "Employee Handbook 2024", item.Provenance())
}

func TestKnowledgeItem_Retire(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	retired := created.Add(time.Hour)
	item := NewKnowledgeItem("k1", "q", "a", "", AccessTierGeneral, nil, 0, created)

	item.Retire(retired)

	assert.False(t, item.Active)
	assert.Equal(t, retired, item.UpdatedAt)
	assert.Equal(t, created, item.CreatedAt)
}

func TestValidateKnowledgeItem(t *testing.T) {
	valid := func() *KnowledgeItem {
		return &KnowledgeItem{
			ID:         "k1",
			Question:   "Where is the VPN guide?",
			Answer:     "On the IT portal.",
			AccessTier: AccessTierIT,
			Priority:   1,
			Active:     true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(k *KnowledgeItem)
		wantErr bool
		errMsg  string
	}{
		{name: "valid item", mutate: func(k *KnowledgeItem) {}},
		{name: "missing ID", mutate: func(k *KnowledgeItem) { k.ID = "" }, wantErr: true, errMsg: "ID"},
		{name: "blank question", mutate: func(k *KnowledgeItem) { k.Question = "  " }, wantErr: true, errMsg: "Question"},
		{name: "missing answer", mutate: func(k *KnowledgeItem) { k.Answer = "" }, wantErr: true, errMsg: "Answer"},
		{name: "unknown tier", mutate: func(k *KnowledgeItem) { k.AccessTier = "secret" }, wantErr: true, errMsg: "AccessTier"},
		{name: "negative priority", mutate: func(k *KnowledgeItem) { k.Priority = -1 }, wantErr: true, errMsg: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid()
			tt.mutate(k)
			err := ValidateKnowledgeItem(k)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				var domainErr *DomainError
				assert.True(t, errors.As(err, &domainErr))
				assert.Equal(t, ErrCodeValidation, domainErr.Code)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateKnowledgeItem_Nil(t *testing.T) {
	err := ValidateKnowledgeItem(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}
