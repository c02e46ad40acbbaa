package labelapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client())
}

func TestAnalyseFrame(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/analyse_image/my%20video.mp4/frame_0001.jpg", r.URL.EscapedPath())
		w.Write([]byte(`{"status":"ok","result":{"detections":[
			{"bbox":[0.1,0.2,0.3,0.4],"confidence":0.9,"class_id":2,"class_name":"car"}
		],"img_shape":[480,640],"img_path":"x.jpg"}}`))
	})
	res, err := c.AnalyseFrame(context.Background(), "my video.mp4", "frame_0001.jpg")
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	require.Equal(t, BBox{0.1, 0.2, 0.3, 0.4}, res.Detections[0].BBox)
	require.Equal(t, "car", res.Detections[0].ClassName)
	require.Equal(t, 2, res.Detections[0].ClassID)
	require.Equal(t, [2]int{480, 640}, res.ImgShape)
}

func TestAnalyseFrameFailures(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":"model exploded"}`))
	})
	_, err := c.AnalyseFrame(context.Background(), "v", "f")
	require.ErrorIs(t, err, ErrStatus)
	require.Contains(t, err.Error(), "model exploded")

	c = newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err = c.AnalyseFrame(context.Background(), "v", "f")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestClasses(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/analyse_image/get_classes", r.URL.Path)
		w.Write([]byte(`{"status":"ok","classes":["person","car"]}`))
	})
	classes, err := c.Classes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"person", "car"}, classes)

	c = newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","classes":{"0":"person"}}`))
	})
	_, err = c.Classes(context.Background())
	require.Error(t, err)

	c = newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	_, err = c.Classes(context.Background())
	require.Error(t, err)
}

func TestLoadMask(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","result":{"detections":[{"bbox":[0,0,0.5,0.5],"class_id":1,"class_name":"bicycle"}]}}`))
	})
	dets, found, err := c.LoadMask(context.Background(), "v", "f")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []MaskDetection{{BBox: BBox{0, 0, 0.5, 0.5}, ClassID: 1, ClassName: "bicycle"}}, dets)
}

func TestLoadMaskMissingIsNotAnError(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	dets, found, err := c.LoadMask(context.Background(), "v", "f")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, dets)
}

func TestSaveMask(t *testing.T) {
	var got MaskRequest
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/mask/v/f", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"ok"}`))
	})
	dets := []MaskDetection{{BBox: BBox{0.1, 0.1, 0.2, 0.2}, ClassID: 0, ClassName: "dog"}}
	require.NoError(t, c.SaveMask(context.Background(), "v", "f", dets))
	require.Equal(t, dets, got.Detections)

	// nil is sent as an empty list, not null
	raw := ""
	c = newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 1024)
		n, _ := r.Body.Read(b)
		raw = string(b[:n])
	})
	require.NoError(t, c.SaveMask(context.Background(), "v", "f", nil))
	require.JSONEq(t, `{"detections":[]}`, raw)
}

func TestSaveMaskFailureStatus(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":"disk full"}`))
	})
	err := c.SaveMask(context.Background(), "v", "f", nil)
	require.True(t, errors.Is(err, ErrStatus))
}

func TestImageURL(t *testing.T) {
	c := NewClient("http://backend:5000/", nil)
	require.Equal(t, "http://backend:5000/api/dataset/images/a%2Fb/1.jpg", c.ImageURL("a/b", "1.jpg"))
}

func TestLoadClassFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(fn, []byte("person\n\n  car \nbicycle\n"), 0644))
	classes, err := LoadClassFile(fn)
	require.NoError(t, err)
	require.Equal(t, []string{"person", "car", "bicycle"}, classes)
}
