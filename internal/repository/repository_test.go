package repository

import (
	"biosearch-go/internal/model"
	"biosearch-go/pkg/database"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ptr(v int64) *int64 { return &v }

// openTestDB 打开一个内存 SQLite 数据库并迁移给定的表，未给出时迁移全部表。
func openTestDB(t *testing.T, tables ...any) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(tables) == 0 {
		require.NoError(t, database.AutoMigrate(db))
	} else {
		require.NoError(t, db.AutoMigrate(tables...))
	}
	return db
}

// seed 写入一组覆盖各条关联路径的测试数据。
func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []any{
		&model.Taxon{ID: 1, ScientificName: "Homo sapiens"},
		&model.Taxon{ID: 2, ScientificName: "Mus musculus"},

		&model.Gene{ID: 1, OfficialSymbol: "GRIN1", NcbiGeneID: 2902, EnsemblID: "ENSG00000176884", TaxonID: 1},
		&model.Gene{ID: 2, OfficialSymbol: "GRIN2A", NcbiGeneID: 2903, TaxonID: 1},
		&model.Gene{ID: 3, OfficialSymbol: "AB_C", TaxonID: 2},
		&model.Gene{ID: 4, OfficialSymbol: "ABXC", TaxonID: 2},
		&model.GeneAlias{GeneID: 2, Alias: "NR2A"},
		&model.GeneXref{GeneID: 1, Accession: "HGNC:4584", Database: "HGNC"},
		&model.GeneProduct{ID: 1, GeneID: 1, Name: "glutamate receptor NMDA 1", ExternalID: "NP_000823"},
		&model.Gene2GOAssociation{GeneID: 1, GOTermURI: "http://purl.obolibrary.org/obo/GO_0004972"},
		&model.Gene2GOAssociation{GeneID: 2, GOTermURI: "http://purl.obolibrary.org/obo/GO_0004972"},
		&model.Gene2GOAssociation{GeneID: 3, GOTermURI: "http://purl.obolibrary.org/obo/GO_0004972"},

		&model.BioSequence{ID: 1, Name: "AA123456", TaxonID: 1},
		&model.BioSequenceAccession{BioSequenceID: 1, Accession: "X12345"},
		&model.BioSequence2GeneProduct{BioSequenceID: 1, GeneProductID: 1},

		&model.ArrayDesign{ID: 1, Name: "Affymetrix HG-U133A", ShortName: "GPL96", Accession: "GPL96", TaxonID: 1},
		&model.ArrayDesign{ID: 2, Name: "Other", ShortName: "GPL1", TaxonID: 1},
		&model.CompositeSequence{ID: 1, Name: "1234_at", ArrayDesignID: 1, BioSequenceID: ptr(1)},
		&model.CompositeSequence{ID: 2, Name: "1234_at", ArrayDesignID: 2},

		&model.ExpressionExperiment{ID: 1, Name: "Brain study", ShortName: "GSE1", Accession: "GSE1", TaxonID: 1},
		&model.ExpressionExperiment{ID: 2, Name: "Mouse study", ShortName: "GSE2", Accession: "GSE2", TaxonID: 2},
		&model.FactorValue{ID: 1, ExperimentID: 2, Value: "hippocampus"},
		&model.BioMaterial{ID: 1, ExperimentID: 1, Name: "sample 1"},
		&model.Characteristic{Value: "brain", ValueURI: "http://example.org/brain", ExperimentID: ptr(1)},
		&model.Characteristic{Value: "brain", ValueURI: "http://example.org/brain", FactorValueID: ptr(1)},
		&model.Characteristic{Value: "cortex", ValueURI: "http://example.org/cortex", BioMaterialID: ptr(1)},
		&model.ExpressionExperimentSet{ID: 1, Name: "Brain sets", TaxonID: 1},
		&model.ExpressionExperimentSetMember{SetID: 1, ExperimentID: 1},

		&model.GeneSet{ID: 1, Name: "glutamate receptor activity", SourceAccession: "GO:0004972", TaxonID: 1},
		&model.GeneSet{ID: 2, Name: "my 100% set", TaxonID: 1},
		&model.BibliographicReference{ID: 1, Title: "NMDA receptors in brain", PubAccession: "12345678"},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
}

func ids[T model.Entity](entities []T) []int64 {
	out := make([]int64, len(entities))
	for i, e := range entities {
		out[i] = e.EntityID()
	}
	return out
}

func TestGeneRepository(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewGeneRepository(db)
	ctx := context.Background()

	tests := []struct {
		name string
		find func() ([]*model.Gene, error)
		want []int64
	}{
		{"ncbi id", func() ([]*model.Gene, error) { return repo.FindByNcbiID(ctx, 2902) }, []int64{1}},
		{"ensembl id", func() ([]*model.Gene, error) { return repo.FindByEnsemblID(ctx, "ENSG00000176884") }, []int64{1}},
		{"exact symbol", func() ([]*model.Gene, error) { return repo.FindByOfficialSymbol(ctx, "GRIN1") }, []int64{1}},
		{"symbol prefix", func() ([]*model.Gene, error) { return repo.FindByOfficialSymbolLike(ctx, "GRIN%") }, []int64{1, 2}},
		{"escaped underscore", func() ([]*model.Gene, error) { return repo.FindByOfficialSymbolLike(ctx, "AB!_C") }, []int64{3}},
		{"alias", func() ([]*model.Gene, error) { return repo.FindByAlias(ctx, "NR2A") }, []int64{2}},
		{"xref", func() ([]*model.Gene, error) { return repo.FindByXref(ctx, "HGNC:4584") }, []int64{1}},
		{"product name", func() ([]*model.Gene, error) { return repo.FindByProductName(ctx, "glutamate receptor NMDA 1") }, []int64{1}},
		{"product external id", func() ([]*model.Gene, error) { return repo.FindByProductExternalID(ctx, "NP_000823") }, []int64{1}},
		{"sequence accession", func() ([]*model.Gene, error) { return repo.FindBySequenceAccession(ctx, "X12345") }, []int64{1}},
		{"sequence name", func() ([]*model.Gene, error) { return repo.FindBySequenceName(ctx, "AA123456") }, []int64{1}},
		{"no match", func() ([]*model.Gene, error) { return repo.FindByAlias(ctx, "nothing") }, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genes, err := tt.find()
			require.NoError(t, err)
			require.ElementsMatch(t, tt.want, ids(genes))
		})
	}

	t.Run("go terms", func(t *testing.T) {
		uri := "http://purl.obolibrary.org/obo/GO_0004972"
		all, err := repo.FindIDsByGOTerms(ctx, []string{uri}, 0)
		require.NoError(t, err)
		require.ElementsMatch(t, []int64{1, 2, 3}, all[uri])

		human, err := repo.FindIDsByGOTerms(ctx, []string{uri}, 1)
		require.NoError(t, err)
		require.ElementsMatch(t, []int64{1, 2}, human[uri])
	})
}

func TestProbeRepository(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewProbeRepository(db)
	ctx := context.Background()

	probes, err := repo.FindByName(ctx, "1234_at", 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, ids(probes))

	probes, err = repo.FindByName(ctx, "1234_at", 2)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids(probes))

	probes, err = repo.FindBySequenceIDs(ctx, []int64{1}, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(probes))

	byGene, err := repo.FindByGeneIDs(ctx, []int64{1, 2}, 0)
	require.NoError(t, err)
	require.Len(t, byGene, 1)
	require.Equal(t, []int64{1}, ids(byGene[1]))

	byGene, err = repo.FindByGeneIDs(ctx, []int64{1}, 2)
	require.NoError(t, err)
	require.Empty(t, byGene)

	seqs, err := repo.FindSequencesByAccession(ctx, "X12345")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(seqs))

	seqsByGene, err := repo.FindSequencesByGeneIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(seqsByGene[1]))
}

func TestPlatformAndExperimentRepositories(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	ctx := context.Background()

	platforms := NewPlatformRepository(db)
	found, err := platforms.FindByShortName(ctx, "GPL96")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(found))
	byProbe, err := platforms.FindByProbeIDs(ctx, []int64{1, 2, 99})
	require.NoError(t, err)
	require.Len(t, byProbe, 2, "unknown probes are omitted")
	require.Equal(t, int64(1), byProbe[1].ID)
	require.Equal(t, int64(2), byProbe[2].ID)

	experiments := NewExperimentRepository(db)
	exps, err := experiments.FindByShortName(ctx, "GSE2")
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids(exps))
	members, err := experiments.FindIDsInSet(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, members)
	sets, err := experiments.FindSetsByNameLike(ctx, "Brain%")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(sets))

	geneSets := NewGeneSetRepository(db)
	gs, err := geneSets.FindBySourceAccessions(ctx, []string{"GO:0004972"}, 2)
	require.NoError(t, err)
	require.Empty(t, gs)
	gs, err = geneSets.FindByNameLike(ctx, "%100!%%")
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids(gs))
	pubs, err := geneSets.FindPublicationsByTitleLike(ctx, "%NMDA%")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(pubs))
}

func TestCharacteristicRepository(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewCharacteristicRepository(db)
	ctx := context.Background()
	brain, cortex := "http://example.org/brain", "http://example.org/cortex"
	uris := []string{brain, cortex}

	direct, err := repo.FindExperimentIDsByURIs(ctx, AnnotationDirect, uris, AnnotationConstraints{})
	require.NoError(t, err)
	require.Equal(t, map[string][]int64{brain: {1}}, direct)

	factor, err := repo.FindExperimentIDsByURIs(ctx, AnnotationFactor, uris, AnnotationConstraints{})
	require.NoError(t, err)
	require.Equal(t, map[string][]int64{brain: {2}}, factor)

	sample, err := repo.FindExperimentIDsByURIs(ctx, AnnotationSample, uris, AnnotationConstraints{})
	require.NoError(t, err)
	require.Equal(t, map[string][]int64{cortex: {1}}, sample)

	t.Run("taxon pushed into join", func(t *testing.T) {
		got, err := repo.FindExperimentIDsByURIs(ctx, AnnotationDirect, uris, AnnotationConstraints{TaxonID: 2})
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("dataset pushed into join", func(t *testing.T) {
		got, err := repo.FindExperimentIDsByURIs(ctx, AnnotationFactor, uris, AnnotationConstraints{DatasetID: 1})
		require.NoError(t, err)
		require.Empty(t, got)

		got, err = repo.FindExperimentIDsByURIs(ctx, AnnotationSample, uris, AnnotationConstraints{DatasetID: 1})
		require.NoError(t, err)
		require.Equal(t, []int64{1}, got[cortex])
	})
}

func TestCharacteristicRepositoryMissingCapability(t *testing.T) {
	db := openTestDB(t, &model.ExpressionExperiment{}, &model.Characteristic{}, &model.FactorValue{})
	repo := NewCharacteristicRepository(db)

	_, err := repo.FindExperimentIDsByURIs(context.Background(), AnnotationSample, []string{"http://example.org/x"}, AnnotationConstraints{})
	require.True(t, errors.Is(err, model.ErrMissingCapability))

	got, err := repo.FindExperimentIDsByURIs(context.Background(), AnnotationFactor, []string{"http://example.org/x"}, AnnotationConstraints{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoadDetailed(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	ctx := context.Background()

	genes, err := NewGeneRepository(db).LoadDetailed(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, genes, 2)
	byID := map[int64]*model.Gene{}
	for _, g := range genes {
		byID[g.ID] = g
	}
	require.Len(t, byID[1].Products, 1)
	require.Equal(t, "NP_000823", byID[1].Products[0].ExternalID)
	require.Len(t, byID[2].Aliases, 1)
	require.Equal(t, "NR2A", byID[2].Aliases[0].Alias)

	seqs, err := NewProbeRepository(db).LoadSequencesDetailed(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0].Accessions, 1)
	require.Equal(t, "X12345", seqs[0].Accessions[0].Accession)
}

func TestLoadExperimentAnnotations(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	repo := NewCharacteristicRepository(db)

	got, err := repo.LoadExperimentAnnotations(context.Background(), []int64{1, 2, 99})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Len(t, got[1].Characteristics, 1)
	require.Equal(t, "brain", got[1].Characteristics[0].Value)
	require.Len(t, got[1].BioMaterials, 1)
	require.Equal(t, "sample 1", got[1].BioMaterials[0].Name)
	require.Len(t, got[1].BioMaterials[0].Characteristics, 1)
	require.Equal(t, "cortex", got[1].BioMaterials[0].Characteristics[0].Value)

	require.Len(t, got[2].FactorValues, 1)
	require.Equal(t, "hippocampus", got[2].FactorValues[0].Value)
	require.Empty(t, got[2].Characteristics, "factor annotations are not direct annotations")

	require.Empty(t, got[99].Characteristics)
}

func TestLoadExperimentAnnotationsMissingTables(t *testing.T) {
	db := openTestDB(t, &model.ExpressionExperiment{})
	repo := NewCharacteristicRepository(db)

	got, err := repo.LoadExperimentAnnotations(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Equal(t, &ExperimentAnnotations{}, got[1])
}
