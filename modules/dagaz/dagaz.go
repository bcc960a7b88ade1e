package dagaz

import (
	"context"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	ErrTypeMissingField = "dagaz_missing_field"
	ErrTypeInvalidPoint = "dagaz_invalid_point"
)

// Module answers dagaz messages from a shared surface state.
type Module struct {
	State *State
}

func (m *Module) Name() string {
	return "dagaz"
}

func (m *Module) HandleQuadSample(ctx context.Context, msg *dagazpb.DagazQuadSample) error {
	quads := make([]Quad, 0, len(msg.GetSamples()))
	for _, sample := range msg.GetSamples() {
		if err := checkPoints(sample.GetCenter(), sample.GetExtents()); err != nil {
			return err
		}
		quads = append(quads, NewQuadFromProtobuf(sample))
	}

	inserted := m.State.InsertQuads(quads...)
	instrumentQuadSamples(len(quads), inserted, m.State.Len())

	if inserted != len(quads) {
		logs.Warn(errors.New("oversized dagaz quads were dropped").
			WithTag("received", len(quads)).
			WithTag("inserted", inserted))
	}
	return nil
}

func (m *Module) HandleGetGroundPlane(ctx context.Context, req *dagazpb.DagazGetGroundPlaneRequest) (*dagazpb.DagazGetGroundPlaneResponse, error) {
	if req.GetRay() == nil {
		return nil, errors.New("ray is missing").
			WithType(ErrTypeMissingField).
			WithTag("request_id", req.GetRequestId())
	}
	if err := checkPoints(req.GetRay().GetFrom(), req.GetRay().GetTo()); err != nil {
		return nil, err
	}

	// an invalid quad is sent back on a miss to still have a response:
	quadHit, _, ok := m.State.IntersectQuad(NewRayFromProtobuf(req.GetRay()))
	instrumentGroundQuery(ok)

	return &dagazpb.DagazGetGroundPlaneResponse{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_RESPONSE,
		Timestamp: timestamppb.Now(),
		RequestId: req.GetRequestId(),
		Ground:    quadHit.ToProtobuf(),
	}, nil
}

func (m *Module) HandleGetRegion(ctx context.Context, req *dagazpb.DagazGetRegionRequest) (*dagazpb.DagazGetRegionResponse, error) {
	if err := checkPoints(req.GetMin(), req.GetMax()); err != nil {
		return nil, err
	}

	regionQuads := m.State.GetRegion(NewVector3fFromProtobuf(req.GetMin()), NewVector3fFromProtobuf(req.GetMax()))
	regionQuadsProtobuf := make([]*dagazpb.Quad, len(regionQuads))
	for i := range regionQuads {
		regionQuadsProtobuf[i] = regionQuads[i].ToProtobuf()
	}

	return &dagazpb.DagazGetRegionResponse{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_RESPONSE,
		Timestamp: timestamppb.Now(),
		RequestId: req.GetRequestId(),
		Quads:     regionQuadsProtobuf,
	}, nil
}

func (m *Module) HandleGetDebugInfo(ctx context.Context, req *dagazpb.DagazGetDebugInfoRequest) (*dagazpb.DagazGetDebugInfoResponse, error) {
	debugInfo := m.State.GetDebugInfo()

	return &dagazpb.DagazGetDebugInfoResponse{
		Type:           dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_RESPONSE,
		Timestamp:      timestamppb.Now(),
		RequestId:      req.GetRequestId(),
		GridResolution: debugInfo.Resolution,
		GridRowCount:   debugInfo.RowCount,
		GridColCount:   debugInfo.ColCount,
		GridPlaneCount: debugInfo.PlaneCount,
		GridMergeCount: debugInfo.MergeCount,
		GridMinPoint:   debugInfo.MinPoint.ToProtobuf(),
		GridMaxPoint:   debugInfo.MaxPoint.ToProtobuf(),
		Occupancy:      debugInfo.Occupancy,
	}, nil
}

func checkPoints(points ...*dagazpb.Point) error {
	for _, p := range points {
		if p == nil {
			return errors.New("point is missing").
				WithType(ErrTypeMissingField)
		}

		for _, v := range [...]float32{p.GetX(), p.GetY(), p.GetZ()} {
			if math.IsNaN((float64)(v)) || math.IsInf((float64)(v), 0) {
				return errors.New("point components must be finite").
					WithType(ErrTypeInvalidPoint)
			}
		}
	}
	return nil
}
