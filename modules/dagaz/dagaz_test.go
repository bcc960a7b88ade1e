package dagaz

import (
	"context"
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func newTestModule(t *testing.T) *Module {
	m := &Module{State: NewState(1)}

	center := NewVector3f(0, 0, 0)
	extents := NewVector3f(1, 0, 1)
	err := m.HandleQuadSample(context.Background(), &dagazpb.DagazQuadSample{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE,
		Timestamp: timestamppb.Now(),
		Samples: []*dagazpb.Quad{
			{Center: center.ToProtobuf(), Extents: extents.ToProtobuf()},
		},
	})
	require.NoError(t, err)
	return m
}

func TestHandleDagazQuadSample(t *testing.T) {
	m := newTestModule(t)
	require.Equal(t, 1, m.State.Len())

	t.Run("empty sample", func(t *testing.T) {
		err := m.HandleQuadSample(context.Background(), &dagazpb.DagazQuadSample{
			Type:    dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE,
			Samples: []*dagazpb.Quad{},
		})
		require.NoError(t, err)
		require.Equal(t, 1, m.State.Len())
	})

	t.Run("missing extents", func(t *testing.T) {
		center := NewVector3f(0, 0, 0)
		err := m.HandleQuadSample(context.Background(), &dagazpb.DagazQuadSample{
			Samples: []*dagazpb.Quad{{Center: center.ToProtobuf()}},
		})
		require.True(t, errors.IsType(err, ErrTypeMissingField))
	})

	t.Run("non finite point", func(t *testing.T) {
		center := NewVector3f((float32)(math.NaN()), 0, 0)
		extents := NewVector3f(1, 0, 1)
		err := m.HandleQuadSample(context.Background(), &dagazpb.DagazQuadSample{
			Samples: []*dagazpb.Quad{{Center: center.ToProtobuf(), Extents: extents.ToProtobuf()}},
		})
		require.True(t, errors.IsType(err, ErrTypeInvalidPoint))
		require.Equal(t, 1, m.State.Len())
	})
}

func TestHandleDagazGetGroundPlane(t *testing.T) {
	m := newTestModule(t)

	t.Run("hit", func(t *testing.T) {
		from := NewVector3f(0, 1, 0)
		to := NewVector3f(0, -1, 0)

		res, err := m.HandleGetGroundPlane(context.Background(), &dagazpb.DagazGetGroundPlaneRequest{
			Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_REQUEST,
			Timestamp: timestamppb.Now(),
			RequestId: 2,
			Ray: &dagazpb.Ray{
				From: from.ToProtobuf(),
				To:   to.ToProtobuf(),
			},
		})
		require.NoError(t, err)
		require.Equal(t, dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_RESPONSE, res.Type)
		require.EqualValues(t, 2, res.RequestId)

		center := NewVector3fFromProtobuf(res.Ground.Center)
		extents := NewVector3fFromProtobuf(res.Ground.Extents)
		require.True(t, center.Equal(NewVector3f(0, 0, 0)))
		require.True(t, extents.Equal(NewVector3f(1, 0, 1)))
	})

	t.Run("miss returns an empty quad", func(t *testing.T) {
		from := NewVector3f(10, 1, 10)
		to := NewVector3f(10, -1, 10)

		res, err := m.HandleGetGroundPlane(context.Background(), &dagazpb.DagazGetGroundPlaneRequest{
			Ray: &dagazpb.Ray{From: from.ToProtobuf(), To: to.ToProtobuf()},
		})
		require.NoError(t, err)
		require.True(t, NewVector3fFromProtobuf(res.Ground.Extents).Equal(Vector3f{}))
	})

	t.Run("missing ray", func(t *testing.T) {
		_, err := m.HandleGetGroundPlane(context.Background(), &dagazpb.DagazGetGroundPlaneRequest{})
		require.True(t, errors.IsType(err, ErrTypeMissingField))
	})
}

func TestHandleDagazGetRegion(t *testing.T) {
	m := newTestModule(t)

	min := NewVector3f(-5, -5, -5)
	max := NewVector3f(5, 5, 5)
	res, err := m.HandleGetRegion(context.Background(), &dagazpb.DagazGetRegionRequest{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_REQUEST,
		RequestId: 3,
		Min:       min.ToProtobuf(),
		Max:       max.ToProtobuf(),
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.RequestId)
	require.Len(t, res.Quads, 1)

	far := NewVector3f(50, 0, 50)
	res, err = m.HandleGetRegion(context.Background(), &dagazpb.DagazGetRegionRequest{
		Min: far.ToProtobuf(),
		Max: far.ToProtobuf(),
	})
	require.NoError(t, err)
	require.Empty(t, res.Quads)
}

func TestHandleDagazGetDebugInfo(t *testing.T) {
	m := newTestModule(t)

	res, err := m.HandleGetDebugInfo(context.Background(), &dagazpb.DagazGetDebugInfoRequest{
		RequestId: 4,
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, res.RequestId)
	require.Equal(t, uint32(1), res.GridResolution)
	require.Equal(t, uint32(1), res.GridPlaneCount)
	require.Equal(t, uint32(3), res.GridRowCount)
	require.Equal(t, uint32(3), res.GridColCount)
	require.Len(t, res.Occupancy, 9)
}
