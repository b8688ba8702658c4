package presets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/adapters/rng"
	"tabclean/adapters/tabular"
	"tabclean/app"
	"tabclean/domain/records"
	"tabclean/internal"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"housing_de", "nyc_taxi_2019"}, Names())
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("boston")
	assert.ErrorContains(t, err, "housing_de, nyc_taxi_2019")
}

// housingColumns is the immo_data.csv header
var housingColumns = []string{
	"regio1", "serviceCharge", "heatingType", "telekomTvOffer", "telekomHybridUploadSpeed", "newlyConst",
	"balcony", "picturecount", "pricetrend", "telekomUploadSpeed", "totalRent", "yearConstructed", "scoutId",
	"noParkSpaces", "firingTypes", "hasKitchen", "geo_bln", "cellar", "yearConstructedRange", "baseRent",
	"houseNumber", "livingSpace", "geo_krs", "condition", "interiorQual", "petsAllowed", "street", "streetPlain",
	"lift", "baseRentRange", "typeOfFlat", "geo_plz", "noRooms", "thermalChar", "floor", "numberOfFloors",
	"noRoomsRange", "garden", "livingSpaceRange", "regio2", "regio3", "description", "facilities",
	"heatingCosts", "energyEfficiencyClass", "lastRefurbish", "electricityBasePrice", "electricityKwhPrice", "date",
}

func TestHousingPreset_PlansAgainstFullHeader(t *testing.T) {
	cfg, err := Load("housing_de")
	require.NoError(t, err)

	declared := make(map[string]records.ColumnSpec)
	for _, col := range cfg.Columns {
		declared[col.Name] = col
	}
	cols := make([]records.ColumnSpec, len(housingColumns))
	for i, name := range housingColumns {
		if spec, ok := declared[name]; ok {
			cols[i] = spec
		} else {
			cols[i] = records.ColumnSpec{Name: name, Kind: records.KindCategorical}
		}
	}

	plan, err := cfg.Plan(records.MustSchema(cols...))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"regio1", "totalRent", "yearConstructed", "baseRent", "livingSpace", "noRooms", "floor",
		"numberOfFloors", "lastRefurbish", "median_base_rent", "rooms_per_livingspace",
	}, plan.Output.Names())
	assert.Len(t, cfg.Remap[0].Codes, 16)
	assert.Equal(t, "regio1", cfg.Split.Stratify)
}

const taxiCSV = `VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count,trip_distance,RatecodeID,PULocationID,DOLocationID,payment_type,fare_amount
1,2019-01-01 00:46:40,2019-01-01 00:53:20,1,1.5,1,151,239,1,7
1,2019-01-01 00:59:47,2019-01-01 01:18:59,1,2.6,1,1,239,1,14
2,2019-01-01 00:21:28,2019-01-01 00:28:37,1,1.3,1,163,264,1,6.5
2,2019-01-01 00:32:01,2019-01-01 00:45:39,1,3.7,2,229,7,1,13.5
2,2019-01-01 00:57:32,2019-01-01 01:09:32,2,0.2,1,141,234,1,3
2,2019-01-01 00:24:04,2019-01-01 00:47:06,2,60,1,132,68,1,200
1,2019-01-01 00:24:04,2019-01-01 00:47:06,2,4,1,132,68,3,20
1,2019-01-01 01:00:00,2019-01-01 01:10:00,1,3,1,48,50,2,11
1,2019-01-01 01:00:00,2019-01-01 01:10:00,1,3,1,48,50,2,
`

func TestTaxiPreset_EndToEnd(t *testing.T) {
	cfg, err := Load("nyc_taxi_2019")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "yellow_tripdata_2019-01.csv")
	require.NoError(t, os.WriteFile(path, []byte(taxiCSV), 0o644))
	readerConfig := tabular.DefaultReaderConfig(path)
	readerConfig.Columns = cfg.Columns
	rs, err := tabular.NewReader(readerConfig, internal.Discard()).Load(context.Background())
	require.NoError(t, err)

	pipeline := app.NewPipeline(app.NewCleaner(internal.Discard()), app.NewSplitter(rng.New(), internal.Discard()))
	result, err := pipeline.Run(context.Background(), rs, cfg)
	require.NoError(t, err)

	cleaned := result.Records
	assert.Equal(t, []int{0, 7}, cleaned.IDs())
	assert.Equal(t, []string{
		"tpep_pickup_datetime", "tpep_dropoff_datetime", "trip_distance", "RatecodeID", "PULocationID",
		"DOLocationID", "payment_type", "fare_amount", "trip_time", "distance/time",
	}, cleaned.Schema().Names())

	km, err := cleaned.Numbers("trip_distance")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.41, 4.83}, km, 1e-9)

	tripTime, err := cleaned.Numbers("trip_time")
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 600}, tripTime)

	speed, err := cleaned.Numbers("distance/time")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.41 / 400, 4.83 / 600}, speed, 1e-12)

	require.NotNil(t, result.Partition)
	assert.Equal(t, 1, result.Partition.Test.Len())
	assert.Equal(t, 1, result.Partition.Train.Len())

	filtered := 0
	for _, s := range result.Report.Stages {
		if s.Stage == "filter" {
			filtered += s.Dropped()
		}
	}
	assert.Equal(t, 7, filtered)
}
