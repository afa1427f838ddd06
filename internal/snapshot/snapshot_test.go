package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"warehouse-etl/internal/schema"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2022, 11, 3, 14, 20, 49, 0, time.UTC)
	got := ObjectKey("sales_order", at, ExtRaw)
	want := "sales_order/2022/11/03/sales_order-20221103T142049Z.json"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}

	// Later captures must sort after earlier ones under the same prefix.
	later := ObjectKey("sales_order", at.Add(time.Hour), ExtRaw)
	if !(later > got) {
		t.Fatalf("key ordering broken: %q !> %q", later, got)
	}
}

func TestObjectKey_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)
	at := time.Date(2022, 11, 3, 1, 0, 0, 0, loc) // 2022-11-02 23:00 UTC
	got := ObjectKey("design", at, ExtDataset)
	want := "design/2022/11/02/design-20221102T230000Z.parquet"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

// fakeS3 serves canned pages of keys and object bodies.
type fakeS3 struct {
	pages   [][]string
	objects map[string][]byte

	listCalls int
	gotKeys   []string
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if params.ContinuationToken != nil {
		page = int((*params.ContinuationToken)[0] - '0')
	}
	f.listCalls++

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if page < len(f.pages) {
		for _, k := range f.pages[page] {
			out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
		}
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKeys = append(f.gotKeys, *params.Key)
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_LatestPicksGreatestKeyAcrossPages(t *testing.T) {
	fake := &fakeS3{
		pages: [][]string{
			{
				"staff/2022/11/01/staff-20221101T090000Z.json",
				"staff/2022/11/03/staff-20221103T090000Z.json",
			},
			{
				"staff/2022/11/02/staff-20221102T090000Z.json",
			},
		},
		objects: map[string][]byte{
			"staff/2022/11/03/staff-20221103T090000Z.json": []byte(`[{"staff_id":1}]`),
		},
	}
	store := &S3Store{bucket: "ingest", api: fake}

	obj, err := store.Latest(context.Background(), "staff")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if obj.Key != "staff/2022/11/03/staff-20221103T090000Z.json" {
		t.Fatalf("picked key %q", obj.Key)
	}
	if fake.listCalls != 2 {
		t.Fatalf("expected 2 list pages, got %d", fake.listCalls)
	}
	if string(obj.Body) != `[{"staff_id":1}]` {
		t.Fatalf("body = %q", obj.Body)
	}
}

func TestS3Store_LatestNotFound(t *testing.T) {
	store := &S3Store{bucket: "ingest", api: &fakeS3{pages: [][]string{{}}}}

	_, err := store.Latest(context.Background(), "design")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRawRoundTrip(t *testing.T) {
	fake := &fakeS3{pages: nil}
	store := &S3Store{bucket: "ingest", api: fake}
	ctx := context.Background()
	at := time.Date(2022, 11, 3, 14, 20, 49, 0, time.UTC)

	id := int64(8)
	name := "Wooden"
	in := []schema.RawDesign{{DesignID: &id, DesignName: &name}}

	key, err := PutRaw(ctx, store, "design", at, in)
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	fake.pages = [][]string{{key}}

	out, err := FetchRaw[schema.RawDesign](ctx, store, "design")
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if len(out) != 1 || out[0].DesignID == nil || *out[0].DesignID != 8 {
		t.Fatalf("round trip lost data: %+v", out)
	}
	if out[0].CreatedAt != nil {
		t.Fatalf("absent field decoded non-nil: %v", *out[0].CreatedAt)
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Store{bucket: "processed", api: fake}
	ctx := context.Background()
	at := time.Date(2022, 11, 3, 14, 20, 49, 0, time.UTC)

	district := "Avon"
	in := []schema.DimLocationRow{
		{LocationID: 1, AddressLine1: "6826 Herzog Via", District: &district,
			City: "New Patienceburgh", PostalCode: "28441", Country: "Turkey", Phone: "1803 637401"},
		{LocationID: 2, AddressLine1: "179 Alexie Cliffs",
			City: "Aliso Viejo", PostalCode: "99305-7380", Country: "San Marino", Phone: "9621 880720"},
	}

	key, err := PutDataset(ctx, store, schema.TableDimLocation, at, in)
	if err != nil {
		t.Fatalf("PutDataset: %v", err)
	}
	fake.pages = [][]string{{key}}

	out, err := FetchDataset[schema.DimLocationRow](ctx, store, schema.TableDimLocation)
	if err != nil {
		t.Fatalf("FetchDataset: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}
