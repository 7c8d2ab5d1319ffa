package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		typ  string
		want Kind
	}{
		{"cp:DecisionLogic", KindDecisionLogic},
		{"cp:EvidenceGateway", KindEvidenceGateway},
		{"cp:Connection", KindConnection},
		{"bpmn:Process", KindProcess},
		{"bpmn:Participant", KindParticipant},
		{"bpmn:Collaboration", KindCollaboration},
		{"bpmn:Task", KindUnrecognized},
		{"cp:Unknown", KindUnrecognized},
		{"cpDecisionLogic", KindUnrecognized},
		{"", KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.typ))
		})
	}
}

func TestKind_Predicates(t *testing.T) {
	assert.True(t, KindDecisionLogic.IsDomain())
	assert.True(t, KindEvidenceGateway.IsDomain())
	assert.True(t, KindConnection.IsDomain())
	assert.False(t, KindProcess.IsDomain())
	assert.False(t, KindUnrecognized.IsDomain())

	assert.True(t, KindProcess.IsContainer())
	assert.True(t, KindParticipant.IsContainer())
	assert.True(t, KindCollaboration.IsContainer())
	assert.False(t, KindDecisionLogic.IsContainer())

	assert.True(t, KindDecisionLogic.IsConnectable())
	assert.True(t, KindEvidenceGateway.IsConnectable())
	assert.False(t, KindConnection.IsConnectable())
	assert.False(t, KindUnrecognized.IsConnectable())
}

func TestKind_StringRoundTrip(t *testing.T) {
	for k := KindDecisionLogic; k <= KindCollaboration; k++ {
		assert.Equal(t, k, Classify(k.String()))
		assert.Equal(t, k.String(), k.Type())
	}
	assert.Equal(t, "unrecognized", KindUnrecognized.String())
	assert.Equal(t, "", KindUnrecognized.Namespace())
	assert.Equal(t, "bpmn", KindParticipant.Namespace())
}

func TestNode_NilSafe(t *testing.T) {
	var n *Node
	assert.Equal(t, KindUnrecognized, n.Kind())
	assert.Equal(t, "", n.TypeName())
}

func TestBusinessObject_Attrs(t *testing.T) {
	bo := &BusinessObject{Attrs: map[string]string{
		"vendor:allowDrop": "true",
		"vendor:note":      "x",
	}}

	v, ok := bo.Attr("vendor:note")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.True(t, bo.Flag("vendor:allowDrop"))
	assert.False(t, bo.Flag("vendor:note"))
	assert.False(t, bo.Flag("vendor:missing"))

	var nilBO *BusinessObject
	_, ok = nilBO.Attr("vendor:allowDrop")
	assert.False(t, ok)
	assert.False(t, nilBO.Flag("vendor:allowDrop"))
}

func TestContext_JSON(t *testing.T) {
	raw := `{
		"shape": {"id": "DL_1", "type": "cp:DecisionLogic", "businessObject": {"$attrs": {"vendor:allowDrop": "true"}}},
		"target": {"id": "Process_1", "type": "bpmn:Process"},
		"connection": {
			"id": "C_1", "type": "cp:Connection",
			"source": {"id": "DL_1", "type": "cp:DecisionLogic"},
			"target": {"id": "EG_1", "type": "cp:EvidenceGateway"}
		}
	}`

	var ctx Context
	require.NoError(t, json.Unmarshal([]byte(raw), &ctx))

	assert.Equal(t, KindDecisionLogic, ctx.Shape.Kind())
	assert.True(t, ctx.Shape.BusinessObject.Flag("vendor:allowDrop"))
	assert.Equal(t, KindProcess, ctx.Target.Kind())
	assert.Equal(t, KindEvidenceGateway, ctx.Connection.Target.Kind())
	assert.Nil(t, ctx.Hover)
	assert.Nil(t, ctx.Source)
}
