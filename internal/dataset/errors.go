package dataset

import "errors"

var ErrUnknownDataset = errors.New("unknown dataset")
