package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/database"
	"biosearch-go/pkg/ontology"
	"encoding/json"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	anatomyURI   = "http://purl.obolibrary.org/obo/UBERON_0001062"
	brainURI     = "http://purl.obolibrary.org/obo/UBERON_0000955"
	forebrainURI = "http://purl.obolibrary.org/obo/UBERON_0001890"
	cortexURI    = "http://purl.obolibrary.org/obo/UBERON_0000956"
	liverURI     = "http://purl.obolibrary.org/obo/UBERON_0002107"

	goMolecularFunction = "http://purl.obolibrary.org/obo/GO_0003674"
	goGlutamateReceptor = "http://purl.obolibrary.org/obo/GO_0004970"
	goNMDAReceptor      = "http://purl.obolibrary.org/obo/GO_0004972"
	goBiologicalProcess = "http://purl.obolibrary.org/obo/GO_0008150"
	goApoptosis         = "http://purl.obolibrary.org/obo/GO_0006915"
)

func ptr(v int64) *int64 { return &v }

type repos struct {
	genes           repository.GeneRepository
	probes          repository.ProbeRepository
	platforms       repository.PlatformRepository
	experiments     repository.ExperimentRepository
	geneSets        repository.GeneSetRepository
	characteristics repository.CharacteristicRepository
}

// openTestRepos 打开内存 SQLite 数据库，迁移给定的表（未给出时迁移全部表）并写入测试数据。
func openTestRepos(t *testing.T, tables ...any) repos {
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
	seed(t, db)

	return repos{
		genes:           repository.NewGeneRepository(db),
		probes:          repository.NewProbeRepository(db),
		platforms:       repository.NewPlatformRepository(db),
		experiments:     repository.NewExperimentRepository(db),
		geneSets:        repository.NewGeneSetRepository(db),
		characteristics: repository.NewCharacteristicRepository(db),
	}
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []any{
		&model.Gene{ID: 1, OfficialSymbol: "GRIN1", NcbiGeneID: 2902, EnsemblID: "ENSG00000176884", TaxonID: 1},
		&model.Gene{ID: 2, OfficialSymbol: "GRIN2A", NcbiGeneID: 2903, TaxonID: 1},
		&model.Gene{ID: 3, OfficialSymbol: "AB_C", TaxonID: 2},
		&model.Gene{ID: 4, OfficialSymbol: "ABXC", TaxonID: 2},
		&model.GeneAlias{GeneID: 2, Alias: "NR2A"},
		&model.GeneAlias{GeneID: 4, Alias: "GRIN1"},
		&model.GeneProduct{ID: 1, GeneID: 1, Name: "glutamate receptor NMDA 1", ExternalID: "NP_000823"},
		&model.Gene2GOAssociation{GeneID: 1, GOTermURI: goNMDAReceptor},
		&model.Gene2GOAssociation{GeneID: 2, GOTermURI: goNMDAReceptor},
		&model.Gene2GOAssociation{GeneID: 3, GOTermURI: goNMDAReceptor},
		&model.Gene2GOAssociation{GeneID: 4, GOTermURI: goGlutamateReceptor},

		&model.BioSequence{ID: 1, Name: "AA123456", TaxonID: 1},
		&model.BioSequenceAccession{BioSequenceID: 1, Accession: "X12345"},
		&model.BioSequence2GeneProduct{BioSequenceID: 1, GeneProductID: 1},

		&model.ArrayDesign{ID: 1, Name: "Affymetrix HG-U133A", ShortName: "GPL96", Accession: "GPL96", TaxonID: 1},
		&model.ArrayDesign{ID: 2, Name: "Other", ShortName: "GPL1", TaxonID: 1},
		&model.CompositeSequence{ID: 1, Name: "1234_at", ArrayDesignID: 1, BioSequenceID: ptr(1)},
		&model.CompositeSequence{ID: 2, Name: "1234_at", ArrayDesignID: 2},

		&model.ExpressionExperiment{ID: 1, Name: "Brain study", ShortName: "GSE1", Accession: "GSE1", TaxonID: 1},
		&model.ExpressionExperiment{ID: 2, Name: "Cortex study", ShortName: "GSE2", Accession: "GSE2", TaxonID: 1},
		&model.ExpressionExperiment{ID: 3, Name: "Mouse study", ShortName: "GSE3", Accession: "GSE3", TaxonID: 2},
		&model.ExpressionExperiment{ID: 4, Name: "Replicate study", ShortName: "GSE4", Accession: "GSE1", TaxonID: 1},
		&model.Characteristic{Value: "brain", ValueURI: brainURI, ExperimentID: ptr(1)},
		&model.Characteristic{Value: "liver", ValueURI: liverURI, ExperimentID: ptr(3)},
		&model.ExpressionExperimentSet{ID: 1, Name: "Brain sets", TaxonID: 1},
		&model.ExpressionExperimentSetMember{SetID: 1, ExperimentID: 1},

		&model.GeneSet{ID: 1, Name: "NMDA glutamate receptor activity", SourceAccession: "GO:0004972", TaxonID: 1},
		&model.GeneSet{ID: 2, Name: "my 100% set", TaxonID: 1},
		&model.BibliographicReference{ID: 1, Title: "NMDA receptors in brain", PubAccession: "12345678"},
	}
	if db.Migrator().HasTable(&model.FactorValue{}) {
		rows = append(rows,
			&model.FactorValue{ID: 1, ExperimentID: 2, Value: "cerebral cortex"},
			&model.Characteristic{Value: "cerebral cortex", ValueURI: cortexURI, FactorValueID: ptr(1)},
		)
	}
	if db.Migrator().HasTable(&model.BioMaterial{}) {
		rows = append(rows,
			&model.BioMaterial{ID: 1, ExperimentID: 3, Name: "mouse brain"},
			&model.Characteristic{Value: "brain", ValueURI: brainURI, BioMaterialID: ptr(1)},
		)
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
}

func loadTestGraph(t *testing.T, raw string) *ontology.Graph {
	t.Helper()
	var file ontology.GraphFile
	require.NoError(t, json.Unmarshal([]byte(raw), &file))
	return ontology.NewGraph(file)
}

func anatomyGraph(t *testing.T) *ontology.Graph {
	return loadTestGraph(t, `{
	  "terms": [
	    {"uri": "`+anatomyURI+`", "label": "anatomical entity"},
	    {"uri": "`+brainURI+`", "label": "brain", "synonyms": ["encephalon"], "parents": ["`+anatomyURI+`"]},
	    {"uri": "`+forebrainURI+`", "label": "forebrain", "parents": ["`+brainURI+`"]},
	    {"uri": "`+cortexURI+`", "label": "cerebral cortex", "parents": ["`+forebrainURI+`"]},
	    {"uri": "`+liverURI+`", "label": "liver", "parents": ["`+anatomyURI+`"]}
	  ],
	  "individuals": []
	}`)
}

func geneOntologyGraph(t *testing.T) *ontology.Graph {
	return loadTestGraph(t, `{
	  "terms": [
	    {"uri": "`+goMolecularFunction+`", "label": "molecular_function"},
	    {"uri": "`+goGlutamateReceptor+`", "label": "glutamate-gated receptor activity", "parents": ["`+goMolecularFunction+`"]},
	    {"uri": "`+goNMDAReceptor+`", "label": "NMDA glutamate receptor activity", "parents": ["`+goGlutamateReceptor+`"]},
	    {"uri": "`+goBiologicalProcess+`", "label": "biological_process"},
	    {"uri": "`+goApoptosis+`", "label": "apoptotic process", "synonyms": ["apoptosis"], "parents": ["`+goBiologicalProcess+`"]}
	  ],
	  "individuals": []
	}`)
}

func scoresByID[T model.Entity](set *model.SearchResultSet[T]) map[int64]float64 {
	out := make(map[int64]float64, set.Len())
	for _, r := range set.Results() {
		out[r.ResultID] = r.Score
	}
	return out
}
