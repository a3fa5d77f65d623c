package transport

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imageslicer/internal/database"
	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/kafka"
	"github.com/ds124wfegd/imageslicer/internal/pkg/processor"
	"github.com/ds124wfegd/imageslicer/internal/pkg/storage"
	"github.com/ds124wfegd/imageslicer/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockSliceService struct {
	mock.Mock
}

func (m *MockSliceService) SliceImage(ctx context.Context, sourceName string, src io.Reader, splitY2 int) (*entity.Run, error) {
	args := m.Called(ctx, sourceName, src, splitY2)
	run, _ := args.Get(0).(*entity.Run)
	return run, args.Error(1)
}

func (m *MockSliceService) GetRun(id string) (*entity.Run, error) {
	args := m.Called(id)
	run, _ := args.Get(0).(*entity.Run)
	return run, args.Error(1)
}

func (m *MockSliceService) GetSlice(id, name string) ([]byte, error) {
	args := m.Called(id, name)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockSliceService) BuildArchive(id string) (string, []byte, error) {
	args := m.Called(id)
	data, _ := args.Get(1).([]byte)
	return args.String(0), data, args.Error(2)
}

func (m *MockSliceService) ReleaseRun(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockSliceService) ReleaseExpired(ctx context.Context, before time.Time) (int, error) {
	args := m.Called(ctx, before)
	return args.Int(0), args.Error(1)
}

func (m *MockSliceService) DefaultSplitY2() int {
	return processor.DefaultSplitY2
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := storage.NewMemoryStorage()
	slicer := processor.NewSlicer(processor.NewResizer(imaging.Lanczos), processor.NewPNGEncoder(png.BestSpeed), 2)
	producer := kafka.NewProducer(kafka.ProducerConfig{Enabled: false})
	svc := service.NewSliceService(database.NewRunRepository(store), producer, slicer, processor.DefaultSplitY2, processor.DefaultMaxPixels)
	return InitRoutes(NewSliceHandler(svc, 1<<20), RouteOptions{RequestTimeout: time.Minute})
}

func pngUpload(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, apiPrefix, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, router http.Handler, width, height int, fields map[string]string) entity.RunResponse {
	t.Helper()
	rec := serve(router, multipartRequest(t, "page.png", pngUpload(t, width, height), fields))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run entity.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	return run
}

func TestUploadImage(t *testing.T) {
	router := newRouter(t)

	run := upload(t, router, 640, 1200, nil)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "page.png", run.SourceName)
	assert.Equal(t, 800, run.SplitY2)
	assert.Equal(t, 1200, run.NormalizedHeight)
	assert.Equal(t, apiPrefix+"/"+run.ID+"/archive", run.ArchiveURL)

	names := make([]string, 0, len(run.Slices))
	for _, s := range run.Slices {
		names = append(names, s.Name)
		assert.Equal(t, apiPrefix+"/"+run.ID+"/files/"+s.Name, s.URL)
		assert.Positive(t, s.Size)
	}
	assert.Equal(t, []string{"m_1.png", "m_2.png", "m_3.png", "m_4.png", "m_5.png", "m_6.png"}, names)
}

func TestUploadImage_CustomSplit(t *testing.T) {
	router := newRouter(t)

	run := upload(t, router, 640, 1200, map[string]string{"split_y2": "640"})

	assert.Equal(t, 640, run.SplitY2)
	assert.Len(t, run.Slices, 5)
	for _, s := range run.Slices {
		assert.NotEqual(t, "m_3.png", s.Name)
	}
}

func TestUploadImage_BadRequests(t *testing.T) {
	router := newRouter(t)
	img := pngUpload(t, 10, 10)

	tests := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
		status   int
	}{
		{name: "no file", status: http.StatusBadRequest},
		{name: "unsupported extension", filename: "notes.txt", data: img, status: http.StatusBadRequest},
		{name: "negative split", filename: "a.png", data: img, fields: map[string]string{"split_y2": "-1"}, status: http.StatusBadRequest},
		{name: "non numeric split", filename: "a.png", data: img, fields: map[string]string{"split_y2": "low"}, status: http.StatusBadRequest},
		{name: "undecodable image", filename: "a.png", data: []byte("not an image"), status: http.StatusBadRequest},
		{name: "too large", filename: "a.png", data: bytes.Repeat([]byte{1}, 2<<20), status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, multipartRequest(t, tt.filename, tt.data, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

type countingReader struct {
	r    io.Reader
	read int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	return n, err
}

func TestUploadImage_OversizedBodyIsNotConsumed(t *testing.T) {
	const limit = 1 << 20
	store := storage.NewMemoryStorage()
	slicer := processor.NewSlicer(processor.NewResizer(imaging.Lanczos), processor.NewPNGEncoder(png.BestSpeed), 1)
	svc := service.NewSliceService(database.NewRunRepository(store), kafka.NewProducer(kafka.ProducerConfig{}), slicer, processor.DefaultSplitY2, processor.DefaultMaxPixels)
	router := InitRoutes(NewSliceHandler(svc, limit), RouteOptions{})

	upload := multipartRequest(t, "huge.png", bytes.Repeat([]byte{7}, 16<<20), nil)
	body, err := io.ReadAll(upload.Body)
	require.NoError(t, err)

	counter := &countingReader{r: bytes.NewReader(body)}
	req := httptest.NewRequest(http.MethodPost, apiPrefix, counter)
	req.Header.Set("Content-Type", upload.Header.Get("Content-Type"))

	rec := serve(router, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.LessOrEqual(t, counter.read, int64(limit+multipartOverhead+1))
	assert.Less(t, counter.read, int64(len(body)))
	assert.Empty(t, store.List(""))
}

func TestUploadImage_ExtensionIsCaseInsensitive(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, multipartRequest(t, "SCAN.PNG", pngUpload(t, 20, 20), nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetRun(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 320, 100, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, len(run.Slices), len(got.Slices))

	rec = serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadSlice(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 640, 100, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/"+run.ID+"/files/m_4.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="m_4.png"`, rec.Header().Get("Content-Disposition"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())

	rec = serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/"+run.ID+"/files/m_1.png?inline=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline"))
}

func TestDownloadSlice_NotFound(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 640, 100, nil)

	// m_3 is absent when the image ends above the second split
	rec := serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/"+run.ID+"/files/m_3.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/missing/files/m_1.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArchive(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 640, 1200, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, run.ArchiveURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="slices_\d{8}_\d{6}\.zip"$`, rec.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, len(run.Slices))
	for i, f := range zr.File {
		assert.Equal(t, run.Slices[i].Name, f.Name)
	}
}

func TestDeleteRun(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 100, 100, nil)

	rec := serve(router, httptest.NewRequest(http.MethodDelete, apiPrefix+"/"+run.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/"+run.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, apiPrefix+"/"+run.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: m_2", entity.ErrEncodingFailure), http.StatusInternalServerError},
		{fmt.Errorf("%w: duplicate", entity.ErrPackagingFailure), http.StatusInternalServerError},
		{entity.ErrRunNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: zero width", entity.ErrInvalidInput), http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := new(MockSliceService)
			svc.On("BuildArchive", "run-1").Return("", nil, tt.err)
			router := InitRoutes(NewSliceHandler(svc, 0), RouteOptions{})

			rec := serve(router, httptest.NewRequest(http.MethodGet, apiPrefix+"/run-1/archive", nil))
			assert.Equal(t, tt.status, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestUploadImage_EncodingFailureIs500(t *testing.T) {
	svc := new(MockSliceService)
	svc.On("SliceImage", mock.Anything, "page.png", mock.Anything, processor.DefaultSplitY2).
		Return(nil, fmt.Errorf("encoding m_4: %w", entity.ErrEncodingFailure))
	router := InitRoutes(NewSliceHandler(svc, 0), RouteOptions{})

	rec := serve(router, multipartRequest(t, "page.png", pngUpload(t, 10, 10), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}

func TestIndexAndHealth(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestNoCrossOriginAccess(t *testing.T) {
	router := newRouter(t)
	run := upload(t, router, 100, 100, nil)

	for _, path := range []string{apiPrefix + "/" + run.ID, run.ArchiveURL, run.Slices[0].URL} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", "https://evil.example")

		rec := serve(router, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), path)
	}

	rec := serve(router, httptest.NewRequest(http.MethodOptions, apiPrefix, nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadImage_RateLimited(t *testing.T) {
	svc := new(MockSliceService)
	svc.On("SliceImage", mock.Anything, "page.png", mock.Anything, processor.DefaultSplitY2).
		Return(&entity.Run{ID: "run-1"}, nil).Once()
	router := InitRoutes(NewSliceHandler(svc, 0), RouteOptions{UploadLimiter: rate.NewLimiter(rate.Every(time.Hour), 1)})

	rec := serve(router, multipartRequest(t, "page.png", pngUpload(t, 10, 10), nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(router, multipartRequest(t, "page.png", pngUpload(t, 10, 10), nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	svc.AssertExpectations(t)
}

func TestEventsRoute(t *testing.T) {
	called := false
	router := InitRoutes(NewSliceHandler(new(MockSliceService), 0), RouteOptions{
		Events: func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusSwitchingProtocols)
		},
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.True(t, called)

	rec := serve(newRouter(t), httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
