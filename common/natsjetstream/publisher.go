package natsjetstream

import (
	"context"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishProto(ctx context.Context, subject string, msg proto.Message) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal proto message")
	}

	return p.Publish(ctx, subject, data)
}

func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.client.js.Publish(ctx, subject, data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventPublishError, "failed to publish message")
	}
	return nil
}

// NewStruct converts a JSON-like map into a protobuf Struct payload.
func NewStruct(payload map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build struct payload")
	}
	return s, nil
}
