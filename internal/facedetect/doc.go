// Package facedetect is the boundary between ingestion and face detection.
//
// Ingestion only needs bounding boxes in upright pixel coordinates, so the
// model lives behind the [Detector] interface. The provided implementation,
// [MTCNN], prepares the BGR float tensor and MTCNN parameters and hands them
// to a [Backend]; [ExecBackend] runs an external inference helper once per
// image. Tests and installations without a model use [None].
//
// A detector failure is returned as an error wrapping [ErrDetection]. It
// aborts the current file only.
//
//	var d facedetect.Detector = facedetect.NewMTCNN(&facedetect.ExecBackend{Command: "mtcnn-infer"})
//	d = facedetect.Instrument(facedetect.Limit(d, 2))
//	boxes, err := d.Detect(ctx, img)
//	if face, ok := facedetect.Largest(boxes); ok {
//	    x, y := face.Midpoint()
//	}
package facedetect
