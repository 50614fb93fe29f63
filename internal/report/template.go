// SPDX-License-Identifier: MIT

package report

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: #f3f4f6;
            color: #111827;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 12px;
            box-shadow: 0 4px 15px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(90deg, #4f46e5, #7c3aed);
            color: white;
            padding: 25px 30px;
        }
        .header h1 { font-size: 1.8em; margin-bottom: 6px; }
        .header .meta { opacity: 0.9; font-size: 0.95em; }
        .legend {
            padding: 15px 30px;
            border-bottom: 1px solid #e5e7eb;
            font-size: 0.9em;
            color: #374151;
        }
        .legend span.cat {
            display: inline-block;
            background: #eef2ff;
            color: #4f46e5;
            border-radius: 6px;
            padding: 2px 8px;
            margin: 2px 6px 2px 0;
        }
        .panels {
            padding: 10px 30px 20px;
            font-size: 0.9em;
            color: #6b7280;
        }
        section.sample { padding: 10px 30px 30px; }
        section.sample h2 {
            font-size: 1.2em;
            margin: 15px 0 4px;
            color: #1f2937;
        }
        section.sample .family { color: #6b7280; font-weight: normal; font-size: 0.85em; }
        section.sample .phenotypes { color: #374151; font-size: 0.9em; margin-bottom: 4px; }
        section.sample .sample-panels { color: #6b7280; font-size: 0.85em; margin-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; font-size: 0.85em; }
        th {
            text-align: left;
            background: #f9fafb;
            color: #374151;
            text-transform: uppercase;
            font-size: 0.8em;
            letter-spacing: 0.5px;
            padding: 8px 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        td { padding: 8px 10px; border-bottom: 1px solid #f3f4f6; vertical-align: top; }
        tr:hover td { background: #f9fafb; }
        td.num { text-align: right; font-variant-numeric: tabular-nums; }
        .badge {
            display: inline-block;
            background: #eef2ff;
            color: #4f46e5;
            border-radius: 6px;
            padding: 1px 7px;
            margin: 1px 3px 1px 0;
            white-space: nowrap;
        }
        .badge.flag { background: #fef3c7; color: #b45309; }
        .badge.label { background: #d1fae5; color: #047857; }
        .support { color: #6b7280; font-size: 0.9em; }
        a { color: #4f46e5; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .empty { padding: 20px 30px 40px; color: #6b7280; }
        .footer {
            padding: 15px 30px;
            border-top: 1px solid #e5e7eb;
            color: #9ca3af;
            font-size: 0.8em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <div class="meta">run {{.RunID}} at {{.RunTime}}</div>
        </div>
        {{if .Categories}}
        <div class="legend">
            {{range $id, $label := .Categories}}<span class="cat">{{$id}}: {{$label}}</span>{{end}}
        </div>
        {{end}}
        {{if .Panels}}
        <div class="panels">
            Panels queried:
            {{range .Panels}}<span class="badge">{{.Name}} ({{.ID}}) v{{.Version}}</span>{{end}}
        </div>
        {{end}}
        {{range .Samples}}
        <section class="sample">
            <h2>{{.ExtID}} <span class="family">family {{.FamilyID}}</span></h2>
            {{if .Phenotypes}}<p class="phenotypes">{{join .Phenotypes "; "}}</p>{{end}}
            {{if .PanelNames}}<p class="sample-panels">Panels: {{join .PanelNames ", "}}</p>{{end}}
            <table>
                <thead>
                    <tr>
                        <th>Type</th>
                        <th>Chrom</th>
                        <th>Pos</th>
                        <th>Change</th>
                        <th>Gene</th>
                        <th>Categories</th>
                        <th>Reasons</th>
                        <th>MANE consequence</th>
                        <th>ClinVar</th>
                        <th>Stars</th>
                        <th>Phenotype match</th>
                        <th>Labels</th>
                        <th>Flags</th>
                        <th>Support</th>
                        <th>First seen</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Rows}}
                    <tr>
                        <td>{{.VarType}}</td>
                        <td>{{.Chrom}}</td>
                        <td class="num">{{if .SeqrLink}}<a href="{{.SeqrLink}}">{{.Pos}}</a>{{else}}{{.Pos}}{{end}}</td>
                        <td>{{.Change}}</td>
                        <td>{{.Gene}}</td>
                        <td>{{range .Categories}}<span class="badge">{{.}}</span>{{end}}</td>
                        <td>{{join .Reasons "; "}}</td>
                        <td>{{.ManeCSQ}}</td>
                        <td>{{.ClinvarSig}}</td>
                        <td class="num">{{.ClinvarStars}}</td>
                        <td>{{.PhenotypeMatchDate}}</td>
                        <td>{{range .ExtLabels}}<span class="badge label">{{.}}</span>{{end}}</td>
                        <td>{{range .WarningFlags}}<span class="badge flag">{{.}}</span>{{end}}</td>
                        <td class="support">{{join .SupportVars ", "}}</td>
                        <td>{{.FirstSeen}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </section>
        {{else}}
        <div class="empty">No reportable variants in this run.</div>
        {{end}}
        <div class="footer">talos {{.Version}}</div>
    </div>
</body>
</html>
`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Talos reports</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: #f3f4f6;
            color: #111827;
            padding: 20px;
        }
        .container {
            max-width: 900px;
            margin: 0 auto;
            background: white;
            border-radius: 12px;
            box-shadow: 0 4px 15px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(90deg, #4f46e5, #7c3aed);
            color: white;
            padding: 25px 30px;
        }
        .header h1 { font-size: 1.8em; margin-bottom: 6px; }
        .header .meta { opacity: 0.9; font-size: 0.95em; }
        h2 {
            font-size: 1.1em;
            color: #1f2937;
            padding: 20px 30px 10px;
        }
        table { width: 100%; border-collapse: collapse; font-size: 0.9em; }
        th {
            text-align: left;
            background: #f9fafb;
            color: #374151;
            text-transform: uppercase;
            font-size: 0.8em;
            letter-spacing: 0.5px;
            padding: 8px 30px;
            border-bottom: 2px solid #e5e7eb;
        }
        td { padding: 8px 30px; border-bottom: 1px solid #f3f4f6; }
        tr:hover td { background: #f9fafb; }
        a { color: #4f46e5; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .empty { padding: 20px 30px 40px; color: #6b7280; }
        .footer {
            padding: 15px 30px;
            border-top: 1px solid #e5e7eb;
            color: #9ca3af;
            font-size: 0.8em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Talos reports</h1>
            <div class="meta">generated {{.Generated}}</div>
        </div>
        {{if .Latest}}
        <h2>Latest</h2>
        <table>
            <thead><tr><th>Cohort</th><th>Report</th><th>Date</th></tr></thead>
            <tbody>
                {{range .Latest}}
                <tr>
                    <td>{{.Cohort}}</td>
                    <td><a href="{{.Href}}">{{.Name}}</a></td>
                    <td>{{.Date}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
        {{end}}
        {{if .History}}
        <h2>History</h2>
        <table>
            <thead><tr><th>Cohort</th><th>Report</th><th>Date</th></tr></thead>
            <tbody>
                {{range .History}}
                <tr>
                    <td>{{.Cohort}}</td>
                    <td><a href="{{.Href}}">{{.Name}}</a></td>
                    <td>{{.Date}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
        {{end}}
        {{if and (not .Latest) (not .History)}}
        <div class="empty">No reports found.</div>
        {{end}}
        <div class="footer">talos {{.Version}}</div>
    </div>
</body>
</html>
`
