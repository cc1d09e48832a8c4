package nodeapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const serviceName = "nodeapi.NodeAPI"

var callOpt = grpc.CallContentSubtype(codecName)

// Client is the storage node's gRPC data-plane surface: bucket/file
// metadata RPCs plus the two streaming block transfer calls.
type Client interface {
	BucketCreate(ctx context.Context, req *BucketCreateRequest) (*BucketCreateResponse, error)
	BucketView(ctx context.Context, req *BucketViewRequest) (*BucketViewResponse, error)
	BucketList(ctx context.Context, req *BucketListRequest) (*BucketListResponse, error)
	BucketDelete(ctx context.Context, req *BucketDeleteRequest) (*BucketDeleteResponse, error)

	FileView(ctx context.Context, req *FileViewRequest) (*FileViewResponse, error)
	FileList(ctx context.Context, req *FileListRequest) (*FileListResponse, error)
	FileDownloadCreate(ctx context.Context, req *FileDownloadCreateRequest) (*FileDownloadCreateResponse, error)
	FileDownloadRangeCreate(ctx context.Context, req *FileDownloadRangeCreateRequest) (*FileDownloadCreateResponse, error)
	FileDownloadChunkCreate(ctx context.Context, req *FileDownloadChunkCreateRequest) (*FileDownloadChunkCreateResponse, error)

	FileUploadBlock(ctx context.Context) (UploadBlockStream, error)
	FileDownloadBlock(ctx context.Context, req *FileDownloadBlockRequest) (DownloadBlockStream, error)
}

// UploadBlockStream is the client side of the FileUploadBlock client
// stream: callers Send fragments (the first carrying Header) and
// CloseAndRecv the server's Ack.
type UploadBlockStream interface {
	Send(part *Part) error
	CloseAndRecv() (*Ack, error)
}

// DownloadBlockStream is the client side of the FileDownloadBlock server
// stream: callers Recv fragments until io.EOF.
type DownloadBlockStream interface {
	Recv() (*BlockChunk, error)
}

type client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps a gRPC connection (typically borrowed from an
// internal/pool.Pool) as a Client.
func NewClient(conn grpc.ClientConnInterface) Client {
	return &client{conn: conn}
}

func (c *client) invoke(ctx context.Context, method string, req, resp wireMessage) error {
	fullMethod := fmt.Sprintf("/%s/%s", serviceName, method)
	return c.conn.Invoke(ctx, fullMethod, req, resp, callOpt)
}

func (c *client) BucketCreate(ctx context.Context, req *BucketCreateRequest) (*BucketCreateResponse, error) {
	resp := &BucketCreateResponse{}
	if err := c.invoke(ctx, "BucketCreate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) BucketView(ctx context.Context, req *BucketViewRequest) (*BucketViewResponse, error) {
	resp := &BucketViewResponse{}
	if err := c.invoke(ctx, "BucketView", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) BucketList(ctx context.Context, req *BucketListRequest) (*BucketListResponse, error) {
	resp := &BucketListResponse{}
	if err := c.invoke(ctx, "BucketList", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) BucketDelete(ctx context.Context, req *BucketDeleteRequest) (*BucketDeleteResponse, error) {
	resp := &BucketDeleteResponse{}
	if err := c.invoke(ctx, "BucketDelete", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileView(ctx context.Context, req *FileViewRequest) (*FileViewResponse, error) {
	resp := &FileViewResponse{}
	if err := c.invoke(ctx, "FileView", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileList(ctx context.Context, req *FileListRequest) (*FileListResponse, error) {
	resp := &FileListResponse{}
	if err := c.invoke(ctx, "FileList", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileDownloadCreate(ctx context.Context, req *FileDownloadCreateRequest) (*FileDownloadCreateResponse, error) {
	resp := &FileDownloadCreateResponse{}
	if err := c.invoke(ctx, "FileDownloadCreate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileDownloadRangeCreate(ctx context.Context, req *FileDownloadRangeCreateRequest) (*FileDownloadCreateResponse, error) {
	resp := &FileDownloadCreateResponse{}
	if err := c.invoke(ctx, "FileDownloadRangeCreate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileDownloadChunkCreate(ctx context.Context, req *FileDownloadChunkCreateRequest) (*FileDownloadChunkCreateResponse, error) {
	resp := &FileDownloadChunkCreateResponse{}
	if err := c.invoke(ctx, "FileDownloadChunkCreate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) FileUploadBlock(ctx context.Context) (UploadBlockStream, error) {
	desc := &grpc.StreamDesc{StreamName: "FileUploadBlock", ClientStreams: true}
	fullMethod := fmt.Sprintf("/%s/FileUploadBlock", serviceName)
	stream, err := c.conn.NewStream(ctx, desc, fullMethod, callOpt)
	if err != nil {
		return nil, err
	}
	return &uploadBlockStream{stream: stream}, nil
}

func (c *client) FileDownloadBlock(ctx context.Context, req *FileDownloadBlockRequest) (DownloadBlockStream, error) {
	desc := &grpc.StreamDesc{StreamName: "FileDownloadBlock", ServerStreams: true}
	fullMethod := fmt.Sprintf("/%s/FileDownloadBlock", serviceName)
	stream, err := c.conn.NewStream(ctx, desc, fullMethod, callOpt)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &downloadBlockStream{stream: stream}, nil
}

type uploadBlockStream struct {
	stream grpc.ClientStream
}

func (s *uploadBlockStream) Send(part *Part) error {
	return s.stream.SendMsg(part)
}

func (s *uploadBlockStream) CloseAndRecv() (*Ack, error) {
	if err := s.stream.CloseSend(); err != nil {
		return nil, err
	}
	ack := &Ack{}
	if err := s.stream.RecvMsg(ack); err != nil {
		return nil, err
	}
	return ack, nil
}

type downloadBlockStream struct {
	stream grpc.ClientStream
}

func (s *downloadBlockStream) Recv() (*BlockChunk, error) {
	chunk := &BlockChunk{}
	if err := s.stream.RecvMsg(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}
