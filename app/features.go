package app

import (
	"tabclean/domain/cleaning"
	"tabclean/domain/records"
	"tabclean/internal/errors"
	"tabclean/internal/features"
)

// FeatureSet holds model inputs prepared from a partition. X sets contain only
// numeric columns; Y sets hold the target column with the same row IDs.
type FeatureSet struct {
	Target string
	XTrain *records.RecordSet
	YTrain *records.RecordSet
	// XTest and YTest are nil when the run has no split
	XTest *records.RecordSet
	YTest *records.RecordSet
	// Medians are the training medians used to fill missing features
	Medians map[string]float64
	// Scaled lists the standardized columns, in Scaler column order
	Scaled   []string
	Scaler   *features.StandardScaler
	Encoders []*features.OneHotEncoder
	// DroppedTrain and DroppedTest count rows left out for lacking a target value
	DroppedTrain int
	DroppedTest  int
}

// PrepareFeatures separates the target from the features, then fills, scales
// and one-hot encodes the features with statistics learned on train. numeric
// are the resolved numeric feature columns. test may be nil.
func PrepareFeatures(prep cleaning.FeaturePrep, numeric []string, train, test *records.RecordSet) (*FeatureSet, error) {
	fs := &FeatureSet{Target: prep.Target}

	xTrain, yTrain, dropped, err := separate(prep, train)
	if err != nil {
		return nil, err
	}
	fs.YTrain, fs.DroppedTrain = yTrain, dropped
	var xTest *records.RecordSet
	if test != nil {
		if xTest, fs.YTest, fs.DroppedTest, err = separate(prep, test); err != nil {
			return nil, err
		}
	}

	if prep.ImputeMedian {
		if xTrain, fs.Medians, err = features.ImputeMedian(xTrain, numeric...); err != nil {
			return nil, errors.Wrap(err, "failed to impute training medians")
		}
		if xTest != nil {
			if xTest, err = features.FillMissing(xTest, fs.Medians); err != nil {
				return nil, errors.Wrap(err, "failed to fill test features")
			}
		}
	}

	if prep.Scale && xTrain.Len() > 0 {
		// columns without a training median are still missing and stay unscaled
		for _, name := range numeric {
			if _, ok := fs.Medians[name]; ok {
				fs.Scaled = append(fs.Scaled, name)
			}
		}
		if xTrain, xTest, err = scale(fs, xTrain, xTest); err != nil {
			return nil, err
		}
	}

	for _, column := range prep.OneHot {
		enc, err := features.FitOneHot(xTrain, column)
		if err != nil {
			return nil, err
		}
		if xTrain, err = enc.Transform(xTrain); err != nil {
			return nil, errors.Wrapf(err, "failed to one-hot encode %s", column)
		}
		if xTest != nil {
			if xTest, err = enc.Transform(xTest); err != nil {
				return nil, errors.Wrapf(err, "failed to one-hot encode %s", column)
			}
		}
		fs.Encoders = append(fs.Encoders, enc)
	}

	fs.XTrain, fs.XTest = xTrain, xTest
	return fs, nil
}

// separate drops rows without a target value and splits the rest into the
// feature columns and the target column
func separate(prep cleaning.FeaturePrep, rs *records.RecordSet) (*records.RecordSet, *records.RecordSet, int, error) {
	pos, _ := rs.Schema().Index(prep.Target)
	labelled := rs.Filter(func(r records.Row) bool { return !r.Values[pos].IsMissing() })

	x, _, err := features.SeparateTarget(labelled, prep.Target)
	if err != nil {
		return nil, nil, 0, err
	}
	if x, err = x.Drop(prep.Exclude); err != nil {
		return nil, nil, 0, err
	}
	y, err := labelled.Project([]string{prep.Target})
	if err != nil {
		return nil, nil, 0, err
	}
	return x, y, rs.Len() - labelled.Len(), nil
}

func scale(fs *FeatureSet, train, test *records.RecordSet) (*records.RecordSet, *records.RecordSet, error) {
	if len(fs.Scaled) == 0 {
		return train, test, nil
	}
	m, err := features.DesignMatrix(train, fs.Scaled...)
	if err != nil {
		return nil, nil, err
	}
	fs.Scaler = features.NewStandardScaler()
	scaled, err := fs.Scaler.FitTransform(m)
	if err != nil {
		return nil, nil, err
	}
	if train, err = features.ReplaceColumns(train, fs.Scaled, scaled); err != nil {
		return nil, nil, err
	}
	if test == nil || test.Len() == 0 {
		return train, test, nil
	}
	if m, err = features.DesignMatrix(test, fs.Scaled...); err != nil {
		return nil, nil, err
	}
	if scaled, err = fs.Scaler.Transform(m); err != nil {
		return nil, nil, err
	}
	if test, err = features.ReplaceColumns(test, fs.Scaled, scaled); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
