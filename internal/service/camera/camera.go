package camera

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"motioncapture/internal/errs"
	"motioncapture/internal/logger"
)

const previewWindowTitle = "motioncapture preview"

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Camera captures JPEG stills from a video device.
type Camera struct {
	device  string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	hasMat  bool
	window  *gocv.Window
	logger  *logger.Logger

	main    Resolution
	lores   Resolution
	quality int
	preview bool

	// mu guards the lifecycle flags. readMu is held for the duration of a
	// device read; Close never waits on it.
	started  bool
	closed   bool
	released bool
	mu       sync.Mutex
	readMu   sync.Mutex
}

// Open opens device, either a numeric camera index or a path/URL understood
// by OpenCV.
func Open(device string, logger *logger.Logger) (*Camera, error) {
	var source interface{} = device
	if id, err := strconv.Atoi(device); err == nil {
		source = id
	}

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s did not open", device)
	}

	return &Camera{
		device:  device,
		capture: capture,
		logger:  logger,
		quality: 90,
	}, nil
}

// Configure sets the still resolution, the low resolution used for the
// preview window and the JPEG quality.
func (c *Camera) Configure(main, lores Resolution, quality int, preview bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.main = main
	c.lores = lores
	c.quality = quality
	c.preview = preview

	c.capture.Set(gocv.VideoCaptureFrameWidth, float64(main.Width))
	c.capture.Set(gocv.VideoCaptureFrameHeight, float64(main.Height))
}

// Start allocates the frame buffer, opens the preview window if enabled and
// reads one frame to make sure the device delivers images.
func (c *Camera) Start() error {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errs.ErrCameraClosed
	}

	if !c.hasMat {
		c.frame = gocv.NewMat()
		c.hasMat = true
	}
	if c.preview && c.window == nil {
		c.window = gocv.NewWindow(previewWindowTitle)
	}

	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return fmt.Errorf("camera %s: warm-up read failed: %w", c.device, errs.ErrEmptyFrame)
	}

	c.started = true
	c.logger.Info("📷 Camera %s started (still %s, preview %s, enabled=%t)", c.device, c.main, c.lores, c.preview)
	return nil
}

// CaptureStill reads one frame and returns it JPEG encoded. The device read
// does not observe ctx once started. If Close runs while a read is in
// flight, the device is released when that read returns.
func (c *Camera) CaptureStill(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.finishRead()

	c.mu.Lock()
	closed, started := c.closed, c.started
	c.mu.Unlock()

	if closed {
		return nil, errs.ErrCameraClosed
	}
	if !started {
		return nil, errs.ErrCameraNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ok := c.capture.Read(&c.frame); !ok {
		return nil, fmt.Errorf("camera %s: failed to read frame", c.device)
	}
	if c.frame.Empty() {
		return nil, errs.ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.frame, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	if c.window != nil {
		c.showPreview()
	}

	return data, nil
}

// finishRead ends a read. A Close that arrived during the read left the
// release to us; the check and the unlock happen under mu so exactly one
// side releases.
func (c *Camera) finishRead() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed && !c.released {
		if err := c.release(); err != nil {
			c.logger.Error("Deferred release of camera %s failed: %v", c.device, err)
		}
	}
	c.readMu.Unlock()
}

// showPreview draws the current frame scaled to the lores size.
func (c *Camera) showPreview() {
	lores := gocv.NewMat()
	defer lores.Close()

	gocv.Resize(c.frame, &lores, image.Pt(c.lores.Width, c.lores.Height), 0, 0, gocv.InterpolationLinear)
	if lores.Empty() {
		c.logger.Warning("Preview frame for camera %s is empty", c.device)
		return
	}
	c.window.IMShow(lores)
	c.window.WaitKey(1)
}

// Close releases the preview window, the frame buffer and the device.
// It does not block on a read in flight; that read releases the device
// when it returns. Subsequent calls are no-ops.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if !c.readMu.TryLock() {
		c.logger.Warning("Camera %s is busy reading, release deferred until the read returns", c.device)
		return nil
	}
	defer c.readMu.Unlock()

	return c.release()
}

// release frees the native handles. Callers hold mu and own the read slot.
func (c *Camera) release() error {
	c.released = true

	if c.window != nil {
		c.window.Close()
		c.window = nil
	}
	if c.hasMat {
		c.frame.Close()
		c.hasMat = false
	}

	if c.capture != nil {
		if err := c.capture.Close(); err != nil {
			return fmt.Errorf("failed to close camera %s: %w", c.device, err)
		}
	}
	c.logger.Info("📷 Camera %s closed", c.device)
	return nil
}
